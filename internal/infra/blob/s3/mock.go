package s3

import (
	"bufio"
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // S3 ETags are MD5 digests
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const mockBucket = "pathwaycore-test"

// NewMockForTests returns a Store whose SDK client is wired to an in-process
// bucket. Only the object calls Store issues are understood: HEAD, GET, PUT,
// DELETE and ListObjectsV2.
func NewMockForTests() *Store {
	bucket := &fakeBucket{name: mockBucket, objects: make(map[string]fakeObject)}
	cfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("eu-west-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: bucket}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://s3.pathwaycore.test")
	})
	return &Store{client: client, bucket: mockBucket}
}

type fakeBucket struct {
	mu      sync.Mutex
	name    string
	objects map[string]fakeObject
}

type fakeObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
	etag        string
	modified    time.Time
}

func (b *fakeBucket) RoundTrip(req *http.Request) (*http.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := strings.TrimPrefix(strings.TrimPrefix(req.URL.Path, "/"+b.name), "/")
	query := req.URL.Query()
	switch {
	case req.Method == http.MethodGet && query.Get("list-type") == "2":
		return b.list(query.Get("prefix"))
	case req.Method == http.MethodHead:
		return b.fetch(key, false), nil
	case req.Method == http.MethodGet:
		return b.fetch(key, true), nil
	case req.Method == http.MethodPut:
		return b.put(key, req)
	case req.Method == http.MethodDelete:
		delete(b.objects, key)
		return respond(http.StatusNoContent, nil, nil), nil
	default:
		return respond(http.StatusNotImplemented, nil, nil), nil
	}
}

func (b *fakeBucket) fetch(key string, withBody bool) *http.Response {
	obj, ok := b.objects[key]
	if !ok {
		return respond(http.StatusNotFound, nil, nil)
	}
	h := http.Header{}
	h.Set("Content-Length", strconv.Itoa(len(obj.data)))
	h.Set("ETag", obj.etag)
	h.Set("Last-Modified", obj.modified.Format(http.TimeFormat))
	if obj.contentType != "" {
		h.Set("Content-Type", obj.contentType)
	}
	for k, v := range obj.metadata {
		h.Set("X-Amz-Meta-"+k, v)
	}
	if !withBody {
		return respond(http.StatusOK, h, nil)
	}
	return respond(http.StatusOK, h, obj.data)
}

func (b *fakeBucket) put(key string, req *http.Request) (*http.Response, error) {
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	data := raw
	if req.Header.Get("X-Amz-Decoded-Content-Length") != "" || strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
		if data, err = dechunk(raw); err != nil {
			return respond(http.StatusBadRequest, nil, []byte(err.Error())), nil
		}
	}
	md := make(map[string]string)
	for name, values := range req.Header {
		if k, ok := strings.CutPrefix(strings.ToLower(name), "x-amz-meta-"); ok && len(values) > 0 {
			md[k] = values[0]
		}
	}
	sum := md5.Sum(data) //nolint:gosec
	obj := fakeObject{
		data:        data,
		contentType: req.Header.Get("Content-Type"),
		metadata:    md,
		etag:        `"` + hex.EncodeToString(sum[:]) + `"`,
		modified:    time.Now().UTC().Truncate(time.Second),
	}
	b.objects[key] = obj
	h := http.Header{}
	h.Set("ETag", obj.etag)
	return respond(http.StatusOK, h, nil), nil
}

type listEntry struct {
	Key          string `xml:"Key"`
	Size         int    `xml:"Size"`
	ETag         string `xml:"ETag"`
	LastModified string `xml:"LastModified"`
}

type listResult struct {
	XMLName     xml.Name    `xml:"ListBucketResult"`
	Name        string      `xml:"Name"`
	Prefix      string      `xml:"Prefix"`
	KeyCount    int         `xml:"KeyCount"`
	IsTruncated bool        `xml:"IsTruncated"`
	Contents    []listEntry `xml:"Contents"`
}

func (b *fakeBucket) list(prefix string) (*http.Response, error) {
	out := listResult{Name: b.name, Prefix: prefix}
	for key, obj := range b.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out.Contents = append(out.Contents, listEntry{
			Key:          key,
			Size:         len(obj.data),
			ETag:         obj.etag,
			LastModified: obj.modified.Format(time.RFC3339),
		})
	}
	sort.Slice(out.Contents, func(i, j int) bool { return out.Contents[i].Key < out.Contents[j].Key })
	out.KeyCount = len(out.Contents)
	body, err := xml.Marshal(out)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Content-Type", "application/xml")
	return respond(http.StatusOK, h, append([]byte(xml.Header), body...)), nil
}

// dechunk decodes an aws-chunked body: hex-sized chunks, optionally carrying
// ";chunk-signature=" extensions, ended by a zero chunk and trailers.
func dechunk(raw []byte) ([]byte, error) {
	r := bufio.NewReader(bytes.NewReader(raw))
	var out bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read chunk header: %w", err)
		}
		sizeHex, _, _ := strings.Cut(strings.TrimSpace(line), ";")
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("chunk size %q: %w", sizeHex, err)
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if _, err := io.CopyN(&out, r, size); err != nil {
			return nil, fmt.Errorf("read chunk: %w", err)
		}
		if _, err := r.Discard(2); err != nil {
			return nil, fmt.Errorf("chunk terminator: %w", err)
		}
	}
}

func respond(status int, h http.Header, body []byte) *http.Response {
	if h == nil {
		h = http.Header{}
	}
	return &http.Response{
		StatusCode:    status,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}
