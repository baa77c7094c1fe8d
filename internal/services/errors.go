package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInputRejected      = errors.New("input rejected")
	ErrDecodeFailed       = errors.New("decode failed")
	ErrEncoderUnavailable = errors.New("encoder unavailable")
	ErrCodec              = errors.New("codec error")
	ErrArchiveRead        = errors.New("archive read failed")
	ErrSave               = errors.New("save failed")
	ErrBusy               = errors.New("another operation is in progress")
	ErrConfiguration      = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrCodec
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind names the failure category of err for display and logging.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInputRejected):
		return "input_rejected"
	case errors.Is(err, ErrDecodeFailed):
		return "decode_failed"
	case errors.Is(err, ErrEncoderUnavailable):
		return "encoder_unavailable"
	case errors.Is(err, ErrCodec):
		return "codec_error"
	case errors.Is(err, ErrArchiveRead):
		return "archive_read_failed"
	case errors.Is(err, ErrSave):
		return "save_failed"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
