package vault

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	for _, version := range []int{RecordV1, RecordV2} {
		r := &Record{
			Version:    version,
			IV:         bytes.Repeat([]byte{0x01}, 12),
			Ciphertext: []byte("ciphertext-with-tag"),
		}

		encoded := EncodeRecord(r)
		decoded, err := DecodeRecord(encoded)
		if err != nil {
			t.Fatalf("v%d: DecodeRecord failed: %v", version, err)
		}
		if decoded.Version != version {
			t.Errorf("v%d: version = %d", version, decoded.Version)
		}
		if !bytes.Equal(decoded.IV, r.IV) || !bytes.Equal(decoded.Ciphertext, r.Ciphertext) {
			t.Errorf("v%d: round trip mismatch", version)
		}
	}
}

func TestRecordShapes(t *testing.T) {
	v1 := EncodeRecord(&Record{Version: RecordV1, IV: []byte{1, 2, 3}, Ciphertext: []byte{4, 5}})
	if strings.Count(v1, ":") != 1 || strings.HasPrefix(v1, "v2:") {
		t.Errorf("unexpected v1 shape: %q", v1)
	}

	v2 := EncodeRecord(&Record{Version: RecordV2, IV: []byte{1, 2, 3}, Ciphertext: []byte{4, 5}})
	if !strings.HasPrefix(v2, "v2:") || strings.Count(v2, ":") != 2 {
		t.Errorf("unexpected v2 shape: %q", v2)
	}
}

func TestDecodeRecordInvalid(t *testing.T) {
	tests := []struct {
		name   string
		record string
	}{
		{"empty", ""},
		{"single part", "AAAA"},
		{"four parts", "v2:AAAA:AAAA:AAAA"},
		{"three parts without tag", "v3:AAAA:AAAA"},
		{"bad base64 iv", "!!!!:AAAA"},
		{"bad base64 ciphertext", "v2:AAAA:***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeRecord(tt.record); !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("expected ErrInvalidRecord, got %v", err)
			}
		})
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := &Envelope{
		Version: EnvelopeVersion,
		Salt:    Bytes{0, 1, 2, 255},
		IV:      Bytes(bytes.Repeat([]byte{7}, 12)),
		Data:    Bytes{9, 8, 7},
	}

	data, err := EncodeEnvelope(env)
	if err != nil {
		t.Fatalf("EncodeEnvelope failed: %v", err)
	}
	if !bytes.Contains(data, []byte(`"salt":[0,1,2,255]`)) {
		t.Errorf("salt not encoded as integer array: %s", data)
	}

	decoded, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}
	if !bytes.Equal(decoded.Salt, env.Salt) || !bytes.Equal(decoded.IV, env.IV) || !bytes.Equal(decoded.Data, env.Data) {
		t.Error("envelope round trip mismatch")
	}
}

func TestDecodeEnvelope(t *testing.T) {
	iv := `[1,2,3,4,5,6,7,8,9,10,11,12]`

	tests := []struct {
		name string
		json string
		want error
	}{
		{"valid", `{"v":1,"salt":[1,2],"iv":` + iv + `,"data":[3]}`, nil},
		{"version 2", `{"v":2,"salt":[1,2],"iv":` + iv + `,"data":[3]}`, ErrUnsupportedVersion},
		{"version 0", `{"v":0,"salt":[1],"iv":` + iv + `,"data":[3]}`, ErrUnsupportedVersion},
		{"version checked first", `{"v":3}`, ErrUnsupportedVersion},
		{"version before base64 fields", `{"v":2,"salt":"AQI=","iv":"x","data":"y"}`, ErrUnsupportedVersion},
		{"version before out of range bytes", `{"v":2,"salt":[300],"iv":` + iv + `,"data":[3]}`, ErrUnsupportedVersion},
		{"missing version", `{"salt":[1],"iv":` + iv + `,"data":[3]}`, ErrInvalidEnvelope},
		{"missing data", `{"v":1,"salt":[1],"iv":` + iv + `}`, ErrInvalidEnvelope},
		{"empty salt", `{"v":1,"salt":[],"iv":` + iv + `,"data":[3]}`, ErrInvalidEnvelope},
		{"short iv", `{"v":1,"salt":[1],"iv":[1,2,3],"data":[3]}`, ErrInvalidEnvelope},
		{"byte out of range", `{"v":1,"salt":[256],"iv":` + iv + `,"data":[3]}`, ErrInvalidEnvelope},
		{"negative byte", `{"v":1,"salt":[-1],"iv":` + iv + `,"data":[3]}`, ErrInvalidEnvelope},
		{"base64 instead of array", `{"v":1,"salt":"AQI=","iv":` + iv + `,"data":[3]}`, ErrInvalidEnvelope},
		{"not json", `v=1`, ErrInvalidEnvelope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(tt.json))
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestEncodeEnvelopeRejectsOtherVersions(t *testing.T) {
	if _, err := EncodeEnvelope(&Envelope{Version: 2}); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}
