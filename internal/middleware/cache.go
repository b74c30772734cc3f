package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/marketplace-availability/internal/config"
)

// captureWriter tees the response body, up to limit bytes, while writing
// it to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int64
	over   bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.over {
		if cw.limit > 0 && int64(cw.buf.Len()+len(b)) > cw.limit {
			cw.over = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// VendorCache caches availability reads per vendor and drops every entry
// of a vendor after a successful mutation on that vendor's routes.
type VendorCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	log *zap.Logger
}

// NewVendorCache returns nil-safe middleware; with caching disabled or no
// Redis client, Middleware is a passthrough.
func NewVendorCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) *VendorCache {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return &VendorCache{cfg: cfg, rdb: rdb, log: log.Named("cache")}
}

// vendorPrefix is the key namespace holding every cached response of one
// vendor.
func (vc *VendorCache) vendorPrefix(vendorID string) string {
	return vc.cfg.Prefix + ":vendor:" + vendorID + ":"
}

// versionKey counts invalidations of one vendor. It lives outside
// vendorPrefix so Invalidate's sweep never removes it.
func (vc *VendorCache) versionKey(vendorID string) string {
	return vc.cfg.Prefix + ":ver:" + vendorID
}

// cacheKey partitions entries by caller, so a hit never skips the access
// check a different caller would have failed, and by vendor version, so
// an entry from before an invalidation is never found again.
func (vc *VendorCache) cacheKey(c echo.Context, vendorID, version string) string {
	r := c.Request()
	tail := strings.Join([]string{version, callerKey(c), r.Method, r.URL.Path, r.URL.RawQuery}, "|")
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s%x", vc.vendorPrefix(vendorID), sum[:])
}

func (vc *VendorCache) version(ctx context.Context, vendorID string) (string, error) {
	v, err := vc.rdb.Get(ctx, vc.versionKey(vendorID)).Result()
	if err == redis.Nil {
		return "0", nil
	}
	return v, err
}

// Invalidate bumps the vendor version, which orphans every cached
// response and stops in-flight reads from storing theirs, then sweeps
// the orphans.
func (vc *VendorCache) Invalidate(ctx context.Context, vendorID string) error {
	if vc.rdb == nil {
		return nil
	}
	if err := vc.rdb.Incr(ctx, vc.versionKey(vendorID)).Err(); err != nil {
		return err
	}
	iter := vc.rdb.Scan(ctx, 0, vc.vendorPrefix(vendorID)+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return vc.rdb.Del(ctx, keys...).Err()
}

// storeIfCurrent writes the entry only while the vendor version still
// matches the one the response was computed under.
var storeIfCurrent = redis.NewScript(`
local cur = redis.call('GET', KEYS[1]) or '0'
if cur ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Middleware must run after authentication and on routes carrying a
// :vendor_id parameter.
func (vc *VendorCache) Middleware() echo.MiddlewareFunc {
	if vc == nil || !vc.cfg.Enabled || vc.rdb == nil {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			vendorID := c.Param("vendor_id")
			if vendorID == "" {
				return next(c)
			}
			if !vc.cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return vc.invalidating(c, vendorID, next)
			}
			return vc.serve(c, vendorID, next)
		}
	}
}

func (vc *VendorCache) invalidating(c echo.Context, vendorID string, next echo.HandlerFunc) error {
	err := next(c)
	if status := c.Response().Status; err == nil && status >= 200 && status < 300 {
		// The request context may be finished once the response is out.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if ierr := vc.Invalidate(ctx, vendorID); ierr != nil {
			vc.log.Warn("invalidate failed", zap.String("vendor_id", vendorID), zap.Error(ierr))
		}
	}
	return err
}

func (vc *VendorCache) serve(c echo.Context, vendorID string, next echo.HandlerFunc) error {
	ctx := c.Request().Context()
	version, err := vc.version(ctx, vendorID)
	if err != nil {
		vc.log.Warn("cache version read failed", zap.String("vendor_id", vendorID), zap.Error(err))
		return next(c)
	}
	key := vc.cacheKey(c, vendorID, version)

	if bs, err := vc.rdb.Get(ctx, key).Bytes(); err == nil {
		if status, hdr, body, ok := decodePayload(bs); ok {
			for k, vals := range hdr {
				if strings.EqualFold(k, "Content-Length") || strings.EqualFold(k, "X-Request-Id") {
					continue
				}
				for _, v := range vals {
					c.Response().Header().Add(k, v)
				}
			}
			c.Response().Header().Set("X-Cache", "HIT")
			c.Response().WriteHeader(status)
			if len(body) > 0 {
				_, _ = c.Response().Write(body)
			}
			return nil
		}
	} else if err != redis.Nil {
		vc.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(vc.cfg.MaxBodyBytes)}
	c.Response().Writer = cw
	c.Response().Header().Set("X-Cache", "MISS")

	if err := next(c); err != nil {
		return err
	}
	if cw.status != http.StatusOK || cw.over {
		return nil
	}
	hdr := c.Response().Header().Clone()
	hdr.Del("X-Cache")
	payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
	if err != nil {
		return nil
	}
	keys := []string{vc.versionKey(vendorID), key}
	stored, err := storeIfCurrent.Run(context.Background(), vc.rdb, keys, version, payload, vc.cfg.TTL.Milliseconds()).Int()
	if err != nil {
		vc.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	} else if stored == 0 {
		vc.log.Debug("cache write skipped: vendor changed during read", zap.String("vendor_id", vendorID))
	}
	return nil
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}
