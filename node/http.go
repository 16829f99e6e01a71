package node

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/hupe1980/agentflow/core"
	"github.com/hupe1980/agentflow/internal/util"
)

// HTTPRequestConfig is the static configuration of an HTTP request node.
// URL, header values and body may contain [[key]] placeholders resolved
// against the accumulated input at request time.
type HTTPRequestConfig struct {
	URL     string            `mapstructure:"url"`
	Method  string            `mapstructure:"method"`
	Headers map[string]string `mapstructure:"headers"`
	Body    string            `mapstructure:"body"`
}

// HTTPRequestOptions configure an HTTP request node.
type HTTPRequestOptions struct {
	Options

	// HTTPClient overrides the client used for outbound requests.
	HTTPClient *http.Client
}

// HTTPRequest performs one HTTP call per accepted input and emits the
// decoded response. Non-2xx responses still emit, with ok set to false;
// only transport failures surface on the error event.
type HTTPRequest struct {
	Base

	cfg    HTTPRequestConfig
	client *http.Client

	mu     sync.Mutex
	inputs map[string]any
}

// NewHTTPRequest constructs an HTTP request node from raw document
// configuration.
func NewHTTPRequest(id string, cfg map[string]any, optFns ...func(o *HTTPRequestOptions)) (*HTTPRequest, error) {
	opts := HTTPRequestOptions{
		Options:    applyOptions(nil),
		HTTPClient: http.DefaultClient,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var decoded HTTPRequestConfig
	if err := mapstructure.Decode(cfg, &decoded); err != nil {
		return nil, core.NewConfigError("httprequest %q: invalid configuration: %s", id, err)
	}

	if decoded.Method == "" {
		decoded.Method = http.MethodGet
	}

	return &HTTPRequest{
		Base:   NewBase(id, opts.Logger),
		cfg:    decoded,
		client: opts.HTTPClient,
		inputs: make(map[string]any),
	}, nil
}

// Accept merges value into the node's accumulated inputs and performs the
// configured request synchronously.
func (n *HTTPRequest) Accept(value map[string]any) {
	n.mu.Lock()
	for k, v := range value {
		n.inputs[k] = v
	}

	data := make(map[string]any, len(n.inputs))
	for k, v := range n.inputs {
		data[k] = v
	}
	n.mu.Unlock()

	url := util.Interpolate(n.cfg.URL, data)
	if url == "" {
		n.fail(core.NewConfigError("httprequest %q: no url configured", n.id))

		return
	}

	var body io.Reader
	if n.cfg.Body != "" {
		body = strings.NewReader(util.Interpolate(n.cfg.Body, data))
	}

	req, err := http.NewRequest(n.cfg.Method, url, body)
	if err != nil {
		n.fail(err)

		return
	}

	for k, v := range n.cfg.Headers {
		req.Header.Set(k, util.Interpolate(v, data))
	}

	n.logger.Debug("http request", "node", n.id, "method", n.cfg.Method, "url", url)

	resp, err := n.client.Do(req)
	if err != nil {
		n.fail(err)

		return
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		n.fail(err)

		return
	}

	n.emit(map[string]any{
		"data":       decodeBody(raw),
		"status":     resp.StatusCode,
		"statusText": http.StatusText(resp.StatusCode),
		"headers":    flattenHeaders(resp.Header),
		"ok":         resp.StatusCode >= 200 && resp.StatusCode < 300,
	})
}

// decodeBody returns the JSON value of raw, or the raw text when the body
// is not valid JSON.
func decodeBody(raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}

	return v
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}

	return out
}
