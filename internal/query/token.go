package query

import (
	"encoding/base64"
	"fmt"

	"github.com/veritrail/veritrail/internal/record"
)

// pageToken pins a page to a snapshot. SnapshotSeq is the tail sequence
// observed when the query started; AfterSeq is the last sequence the
// previous page returned. Appends after the first page never leak into
// later pages.
type pageToken struct {
	SnapshotSeq int64
	AfterSeq    int64
}

// encodeToken serializes a token as base64 over canonical JSON. Canonical
// bytes keep tokens stable across processes, so the same position always
// produces the same token string.
func encodeToken(t pageToken) (string, error) {
	b, err := record.MarshalCanonical(record.Object{
		"snapshot_seq": record.Int(t.SnapshotSeq),
		"after_seq":    record.Int(t.AfterSeq),
	})
	if err != nil {
		return "", fmt.Errorf("encode page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decodeToken(s string) (pageToken, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return pageToken{}, &Error{Code: CodeInvalidQuery, Message: "malformed page token", Err: err}
	}

	var obj record.Object
	if err := obj.UnmarshalJSON(raw); err != nil {
		return pageToken{}, &Error{Code: CodeInvalidQuery, Message: "malformed page token", Err: err}
	}

	snapshot, ok1 := obj["snapshot_seq"].(record.Int)
	after, ok2 := obj["after_seq"].(record.Int)
	if !ok1 || !ok2 {
		return pageToken{}, &Error{Code: CodeInvalidQuery, Message: "page token is missing sequence fields"}
	}
	if snapshot < 0 || after < -1 || int64(after) > int64(snapshot) {
		return pageToken{}, &Error{Code: CodeInvalidQuery, Message: "page token sequence fields are out of range"}
	}

	return pageToken{SnapshotSeq: int64(snapshot), AfterSeq: int64(after)}, nil
}
