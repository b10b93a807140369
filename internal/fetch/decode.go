package fetch

import (
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/rs/zerolog/log"
)

// compressedReadFactor scales MaxBytes for the raw read of a compressed body.
const compressedReadFactor = 4

func isCompressed(encoding string) bool {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip", "deflate":
		return true
	}
	return false
}

// decodeBody undoes a gzip or deflate Content-Encoding. Bodies that fail to
// decode are returned as received; some servers label plain bodies as
// compressed.
func decodeBody(raw []byte, encoding string, limit int64) []byte {
	enc := strings.ToLower(strings.TrimSpace(encoding))
	if enc == "" || enc == "identity" {
		return capBytes(raw, limit)
	}
	var (
		out []byte
		err error
	)
	switch enc {
	case "gzip", "x-gzip":
		out, err = gunzip(raw, limit)
	case "deflate":
		out, err = inflate(raw, limit)
	default:
		log.Debug().Str("encoding", encoding).Msg("unsupported content encoding, using raw body")
		return capBytes(raw, limit)
	}
	if err != nil {
		log.Debug().Err(err).Str("encoding", enc).Msg("body decode failed, using raw body")
		return capBytes(raw, limit)
	}
	return out
}

func capBytes(b []byte, limit int64) []byte {
	if limit > 0 && int64(len(b)) > limit {
		return b[:limit]
	}
	return b
}

func gunzip(raw []byte, limit int64) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, limit))
}

// inflate accepts both zlib-wrapped and raw deflate streams, since servers
// disagree on what "deflate" means.
func inflate(raw []byte, limit int64) ([]byte, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
		defer zr.Close()
		if out, err := io.ReadAll(io.LimitReader(zr, limit)); err == nil {
			return out, nil
		}
	}
	fr := flate.NewReader(bytes.NewReader(raw))
	defer fr.Close()
	return io.ReadAll(io.LimitReader(fr, limit))
}
