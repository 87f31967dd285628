package decoder

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"errors"
	"testing"
)

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close compressor: %v", err)
	}
	return buf.Bytes()
}

func TestDecode_Valid(t *testing.T) {
	doc := `{
		"resultType": "orders",
		"columns": ["price", "volRemaining"],
		"rowsets": [
			{"generatedAt": "2024-01-01T00:00:00Z", "typeID": 34, "regionID": 10000002,
			 "rows": [[5.0, 10]]}
		]
	}`

	msg, err := Decode(deflate(t, []byte(doc)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if msg.ResultType != "orders" {
		t.Errorf("ResultType = %q, want orders", msg.ResultType)
	}
	if len(msg.Columns) != 2 {
		t.Errorf("Columns = %d, want 2", len(msg.Columns))
	}
	if len(msg.Rowsets) != 1 {
		t.Fatalf("Rowsets = %d, want 1", len(msg.Rowsets))
	}

	rs := msg.Rowsets[0]
	if rs.TypeID != 34 || rs.RegionID != 10000002 {
		t.Errorf("rowset key = (%d, %d), want (34, 10000002)", rs.TypeID, rs.RegionID)
	}

	// numerics must survive as json.Number, not float64
	if _, ok := rs.Rows[0][0].(json.Number); !ok {
		t.Errorf("row value type = %T, want json.Number", rs.Rows[0][0])
	}
}

func TestDecode_Failures(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		stage string
	}{
		{"not compressed", []byte("plain bytes"), "inflate"},
		{"compressed garbage", nil, "parse"}, // filled below
		{"missing resultType", nil, "shape"},
		{"missing columns", nil, "shape"},
		{"missing rowsets", nil, "shape"},
	}
	tests[1].frame = deflate(t, []byte("{not json"))
	tests[2].frame = deflate(t, []byte(`{"columns": [], "rowsets": []}`))
	tests[3].frame = deflate(t, []byte(`{"resultType": "orders", "rowsets": []}`))
	tests[4].frame = deflate(t, []byte(`{"resultType": "orders", "columns": []}`))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.frame)
			if err == nil {
				t.Fatal("Decode() error = nil, want DecodeError")
			}

			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("error type = %T, want *DecodeError", err)
			}
			if de.Stage != tt.stage {
				t.Errorf("Stage = %q, want %q", de.Stage, tt.stage)
			}
		})
	}
}

func TestDecode_EmptyCollectionsAreValid(t *testing.T) {
	doc := `{"resultType": "orders", "columns": [], "rowsets": []}`
	msg, err := Decode(deflate(t, []byte(doc)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(msg.Columns) != 0 || len(msg.Rowsets) != 0 {
		t.Errorf("unexpected shape: %+v", msg)
	}
}
