package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

// ToolsETag returns an ETag for a tool list and logs on failure.
func ToolsETag(logger *zap.Logger, tools []domain.Tool) string {
	return hashWithLogger(logger, "tool", func() (string, error) {
		return hashJSON(tools)
	})
}

// ServicesETag returns an ETag for a service list and logs on failure.
func ServicesETag(logger *zap.Logger, services []domain.Service) string {
	return hashWithLogger(logger, "service", func() (string, error) {
		return hashJSON(services)
	})
}

// hashJSON relies on encoding/json sorting map keys, so equal values hash equally.
func hashJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`, nil
}

func hashWithLogger(logger *zap.Logger, label string, fn func() (string, error)) string {
	etag, err := fn()
	if err != nil {
		if logger != nil {
			logger.Warn(fmt.Sprintf("%s hash failed", label), zap.Error(err))
		}
		return ""
	}
	return etag
}
