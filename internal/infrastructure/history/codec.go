package history

import (
	"bytes"
	"encoding/json"
	"fmt"

	"studiobot/internal/domain"
)

// encodeDocument は、履歴をバージョン付きの文書として書き出します
func encodeDocument(entries []domain.ProjectHistoryEntry) ([]byte, error) {
	if entries == nil {
		entries = []domain.ProjectHistoryEntry{}
	}
	data, err := json.Marshal(domain.HistoryDocument{
		Version: domain.HistorySchemaVersion,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("履歴のエンコードに失敗: %w", err)
	}
	return data, nil
}

// decodeDocument は、保存された履歴を読み取ります
// バージョンのない配列形式は旧形式として受け付けます
func decodeDocument(data []byte) ([]domain.ProjectHistoryEntry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var entries []domain.ProjectHistoryEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("履歴のデコードに失敗: %w", err)
		}
		return entries, nil
	}

	var doc domain.HistoryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("履歴のデコードに失敗: %w", err)
	}
	if doc.Version != domain.HistorySchemaVersion {
		return nil, fmt.Errorf("version %d: %w", doc.Version, domain.ErrUnsupportedHistoryVersion)
	}
	return doc.Entries, nil
}
