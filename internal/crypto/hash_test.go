package crypto

import (
	"testing"
)

func TestKeccak256Hex(t *testing.T) {
	// keccak256("") is a well known constant
	got := Keccak256Hex([]byte(""))
	want := "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	if got != want {
		t.Errorf("Keccak256Hex(\"\") = %s, want %s", got, want)
	}
}

func TestHashJSON(t *testing.T) {

	// check that empty input returns an error
	if _, err := HashJSON([]byte("")); err == nil {
		t.Fatalf("HashJSON() expected error, got nil")
	}

	// invalid json is rejected
	if _, err := HashJSON([]byte(`{"a":`)); err == nil {
		t.Fatalf("HashJSON() expected error for invalid JSON, got nil")
	}

	// key order and whitespace do not change the fingerprint
	h1, err := HashJSON([]byte(`{"issuer":{"id":"did:y","name":"Carrier"},"id":"1"}`))
	if err != nil {
		t.Fatalf("HashJSON() returned error: %v", err)
	}
	h2, err := HashJSON([]byte(`{ "id": "1", "issuer": { "name": "Carrier", "id": "did:y" } }`))
	if err != nil {
		t.Fatalf("HashJSON() returned error: %v", err)
	}
	if h1 != h2 {
		t.Errorf("fingerprints differ: %s != %s", h1, h2)
	}

	if !IsFingerprint(h1) {
		t.Errorf("HashJSON() returned %q which is not a fingerprint", h1)
	}

	// a changed value changes the fingerprint
	h3, err := HashJSON([]byte(`{"issuer":{"id":"did:y","name":"Carrier2"},"id":"1"}`))
	if err != nil {
		t.Fatalf("HashJSON() returned error: %v", err)
	}
	if h1 == h3 {
		t.Error("different documents produced the same fingerprint")
	}
}

func TestHashJSON_Canonical(t *testing.T) {
	// keccak256(`{"a":{"x":"v","y":[1,2]},"b":1}`)
	const want = "0x9bd39574f7db95da1fef136b992e5faec50da627047e7132f9a1b638770e9e65"

	tests := []struct {
		name  string
		input string
	}{
		{"canonical", `{"a":{"x":"v","y":[1,2]},"b":1}`},
		{"reordered keys", `{"b": 1, "a": {"y": [1,2], "x": "v"}}`},
		{"whitespace", "{\n  \"a\": {\"x\": \"v\", \"y\": [1, 2]},\n  \"b\": 1\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HashJSON([]byte(tt.input))
			if err != nil {
				t.Fatalf("HashJSON() returned error: %v", err)
			}
			if got != want {
				t.Errorf("HashJSON() = %s, want %s", got, want)
			}
		})
	}
}

func TestValidateFingerprint(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", false},
		{"missing prefix", "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", true},
		{"too short", "0xc5d246", true},
		{"not hex", "0xzzd2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFingerprint(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFingerprint() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
