package format_test

import (
	"testing"

	"github.com/aretw0/nodegraph/pkg/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() format.FlowChartRecord {
	return format.FlowChartRecord{
		GUID:     "1b4e28ba-2fa1-11d2-883f-0016d3cca427",
		Type:     "nodegraph.FlowChart",
		Viewport: format.ViewportRecord{OffsetX: 10, Scale: 1.5},
		Nodes: []format.NodeRecord{{
			GUID:                  "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			Type:                  "math.Add",
			Owner:                 "1b4e28ba-2fa1-11d2-883f-0016d3cca427",
			Header:                "Add",
			HeaderBackgroundColor: "#FF000000",
			HeaderFontColor:       "#FFFFFFFF",
			AllowEditingHeader:    true,
			X:                     12.5,
			ZIndex:                1,
			InputPropertyPorts: []format.PortRecord{{
				GUID:          "6ba7b811-9dad-11d1-80b4-00c04fd430c8",
				Type:          "nodegraph.PropertyPort",
				Owner:         "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
				IsInput:       true,
				Name:          "A",
				DisplayName:   "A",
				IsPortEnabled: true,
				IsEnabled:     true,
				ValueType:     "float",
				RealValueType: "float",
				HasEditor:     true,
				Value:         2.5,
			}},
		}},
		Connectors: []format.ConnectorRecord{{
			GUID:      "6ba7b812-9dad-11d1-80b4-00c04fd430c8",
			Type:      "nodegraph.Connector",
			Owner:     "1b4e28ba-2fa1-11d2-883f-0016d3cca427",
			StartPort: "6ba7b813-9dad-11d1-80b4-00c04fd430c8",
			EndPort:   "6ba7b811-9dad-11d1-80b4-00c04fd430c8",
		}},
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	codecs := []format.Codec{
		format.YAML(),
		format.JSON(),
		format.MsgPack(),
		format.Zstd(format.YAML()),
		format.Zstd(format.MsgPack()),
	}

	for _, codec := range codecs {
		t.Run(codec.Name(), func(t *testing.T) {
			in := sampleRecord()
			data, err := codec.Marshal(in)
			require.NoError(t, err)

			var out format.FlowChartRecord
			require.NoError(t, codec.Unmarshal(data, &out))

			assert.Equal(t, in.GUID, out.GUID)
			assert.Equal(t, in.Viewport, out.Viewport)
			require.Len(t, out.Nodes, 1)
			assert.Equal(t, "Add", out.Nodes[0].Header)
			require.Len(t, out.Nodes[0].InputPropertyPorts, 1)
			assert.EqualValues(t, 2.5, out.Nodes[0].InputPropertyPorts[0].Value)
			assert.Equal(t, in.Connectors, out.Connectors)
		})
	}
}

func TestYAML_IsReadable(t *testing.T) {
	data, err := format.YAML().Marshal(sampleRecord())
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "guid: 1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	assert.Contains(t, text, "input_property_ports:")
	assert.Contains(t, text, "start_port: 6ba7b813-9dad-11d1-80b4-00c04fd430c8")
}

func TestByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		ext     string
		wantErr bool
	}{
		{"yaml", "yaml", ".yaml", false},
		{"", "yaml", ".yaml", false},
		{"JSON", "json", ".json", false},
		{"msgpack+zstd", "msgpack+zstd", ".msgpack.zst", false},
		{"xml", "", "", true},
	}

	for _, tt := range tests {
		c, err := format.ByName(tt.name)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, c.Name())
		assert.Equal(t, tt.ext, c.Extension())
	}
}

func TestByExtension(t *testing.T) {
	tests := map[string]string{
		"graph.yaml":        "yaml",
		"graph.yml":         "yaml",
		"graph.JSON":        "json",
		"graph.msgpack":     "msgpack",
		"graph.json.zst":    "json+zstd",
		"dir/x.msgpack.zst": "msgpack+zstd",
	}
	for path, want := range tests {
		c, err := format.ByExtension(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, c.Name(), path)
	}

	_, err := format.ByExtension("graph.txt")
	assert.Error(t, err)
}
