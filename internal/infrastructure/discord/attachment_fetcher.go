package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"studiobot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

// 取り込む添付ファイルの最大サイズ（20MB）
const maxAttachmentSize = 20 << 20

// ErrUnsupportedAttachment は、画像として取り込めない添付ファイルのエラーです
var ErrUnsupportedAttachment = errors.New("画像ファイルではありません")

// AttachmentFetcher は、Discordの添付ファイルをダウンロードして参照画像に変換します
type AttachmentFetcher struct {
	client *http.Client
}

// NewAttachmentFetcher は新しいAttachmentFetcherインスタンスを作成します
// clientがnilの場合はhttp.DefaultClientを使用します
func NewAttachmentFetcher(client *http.Client) *AttachmentFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &AttachmentFetcher{client: client}
}

// NewSessionAttachmentFetcher は、Discordセッションと同じHTTPクライアントを使うAttachmentFetcherを作成します
func NewSessionAttachmentFetcher(s *discordgo.Session) *AttachmentFetcher {
	return NewAttachmentFetcher(s.Client)
}

// Fetch は、添付ファイルをダウンロードします
func (f *AttachmentFetcher) Fetch(ctx context.Context, a *discordgo.MessageAttachment) (domain.ReferenceImage, error) {
	if a == nil {
		return domain.ReferenceImage{}, fmt.Errorf("添付ファイルが指定されていません")
	}
	if a.ContentType != "" && !strings.HasPrefix(a.ContentType, "image/") {
		return domain.ReferenceImage{}, fmt.Errorf("%s (%s): %w", a.Filename, a.ContentType, ErrUnsupportedAttachment)
	}
	if a.Size > maxAttachmentSize {
		return domain.ReferenceImage{}, fmt.Errorf("%s は大きすぎます (%d bytes)", a.Filename, a.Size)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return domain.ReferenceImage{}, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return domain.ReferenceImage{}, fmt.Errorf("添付ファイルのダウンロードに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ReferenceImage{}, fmt.Errorf("添付ファイルのダウンロードに失敗: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentSize+1))
	if err != nil {
		return domain.ReferenceImage{}, fmt.Errorf("添付ファイルの読み込みに失敗: %w", err)
	}
	if len(data) > maxAttachmentSize {
		return domain.ReferenceImage{}, fmt.Errorf("%s は大きすぎます", a.Filename)
	}

	img := domain.NewReferenceImage(a.Filename, a.ContentType, data)
	if !strings.HasPrefix(img.MIMEType, "image/") {
		return domain.ReferenceImage{}, fmt.Errorf("%s (%s): %w", a.Filename, img.MIMEType, ErrUnsupportedAttachment)
	}
	return img, nil
}
