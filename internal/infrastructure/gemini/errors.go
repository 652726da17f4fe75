package gemini

import (
	"errors"
	"net/http"
	"strings"

	"studiobot/internal/domain"

	"google.golang.org/genai"
)

// 認証情報の再選択が必要なことを示すメッセージ
var credentialMarkers = []string{
	"API_KEY_INVALID",
	"API key not valid",
	"PERMISSION_DENIED",
	"UNAUTHENTICATED",
	"Requested entity was not found",
}

// classifyError は、Gemini APIのエラーを GenerationError に分類します
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if isCredentialFailure(err) {
		return domain.NewGenerationError(domain.ErrInvalidCredential, err)
	}
	return domain.NewGenerationError(domain.ErrTransport, err)
}

func isCredentialFailure(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && isCredentialStatus(apiErr.Code, apiErr.Status) {
		return true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && isCredentialStatus(apiErrPtr.Code, apiErrPtr.Status) {
		return true
	}

	msg := err.Error()
	for _, marker := range credentialMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func isCredentialStatus(code int, status string) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	switch status {
	case "PERMISSION_DENIED", "UNAUTHENTICATED", "NOT_FOUND":
		return true
	}
	return false
}
