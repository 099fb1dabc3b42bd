package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/nodegraph"
	"github.com/aretw0/nodegraph/pkg/dsl"
	"github.com/aretw0/nodegraph/pkg/nodes"
	"github.com/aretw0/nodegraph/pkg/observability"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (http.Handler, *nodegraph.Editor) {
	t.Helper()
	promReg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(promReg)
	require.NoError(t, err)
	ed, err := nodegraph.New(nodegraph.WithMetrics(m))
	require.NoError(t, err)
	t.Cleanup(func() { ed.Close() })

	b := dsl.New()
	b.Add("start", nodes.TypeStart).Go("log")
	b.Add("log", nodes.TypeLog)
	g, err := b.Build(ed.Registry())
	require.NoError(t, err)
	require.NoError(t, ed.Save(context.Background(), "hello", g.FlowChart))
	require.NoError(t, ed.Store().Save(context.Background(), "broken", []byte("guid: nope\n")))

	return NewHandler(ed, WithGatherer(promReg)), ed
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestGetHealth(t *testing.T) {
	h, _ := newTestHandler(t)
	rr := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestGetInfo(t *testing.T) {
	h, _ := newTestHandler(t)
	rr := get(t, h, "/info")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "nodegraph-inspector", resp["app"])
	assert.NotEmpty(t, resp["version"])
}

func TestDocuments(t *testing.T) {
	h, ed := newTestHandler(t)

	rr := get(t, h, "/documents")
	require.Equal(t, http.StatusOK, rr.Code)
	var list map[string][]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, []string{"broken", "hello"}, list["documents"])

	rr = get(t, h, "/documents/hello")
	require.Equal(t, http.StatusOK, rr.Code)
	var doc struct {
		GUID  string           `json:"guid"`
		Nodes []map[string]any `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Equal(t, ed.Registry().FlowCharts()[0].GUID().String(), doc.GUID)
	assert.Len(t, doc.Nodes, 2)

	rr = get(t, h, "/documents/hello/mermaid")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Body.String(), "graph LR"))
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
}

func TestDocuments_Errors(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		path   string
		status int
	}{
		{"/documents/hello/validate", http.StatusOK},
		{"/documents/broken/validate", http.StatusUnprocessableEntity},
		{"/documents/broken/mermaid", http.StatusUnprocessableEntity},
		{"/documents/absent", http.StatusNotFound},
		{"/documents/.hidden", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := get(t, h, tt.path)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
}

func TestGetTypes(t *testing.T) {
	h, _ := newTestHandler(t)
	rr := get(t, h, "/types")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Types []registry.TypeDescription `json:"types"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	var add *registry.TypeDescription
	for i := range resp.Types {
		if resp.Types[i].Name == nodes.TypeAdd {
			add = &resp.Types[i]
		}
	}
	require.NotNil(t, add)
	assert.Contains(t, add.Ports, registry.PortDescription{Name: nodes.PortSum, Kind: "property", Input: false, ValueType: "float"})
}

func TestMetrics(t *testing.T) {
	h, _ := newTestHandler(t)
	rr := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "nodegraph_entities_created_total")
}
