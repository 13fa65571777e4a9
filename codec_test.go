package gram

import "testing"

type codecTestConfig struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

func TestJSONCodec_Unmarshal(t *testing.T) {
	codec := JSONCodec{}

	data := []byte(`{"name": "test", "value": 42}`)
	var cfg codecTestConfig

	if err := codec.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if cfg.Name != "test" {
		t.Errorf("expected name 'test', got %q", cfg.Name)
	}
	if cfg.Value != 42 {
		t.Errorf("expected value 42, got %d", cfg.Value)
	}
}

func TestJSONCodec_UnmarshalInvalid(t *testing.T) {
	var cfg codecTestConfig
	if err := (JSONCodec{}).Unmarshal([]byte(`{not valid json}`), &cfg); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestYAMLCodec_Unmarshal(t *testing.T) {
	var cfg codecTestConfig
	if err := (YAMLCodec{}).Unmarshal([]byte("name: test\nvalue: 42"), &cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if cfg.Name != "test" {
		t.Errorf("expected name 'test', got %q", cfg.Name)
	}
	if cfg.Value != 42 {
		t.Errorf("expected value 42, got %d", cfg.Value)
	}
}

func TestYAMLCodec_UnmarshalInvalid(t *testing.T) {
	var cfg codecTestConfig
	if err := (YAMLCodec{}).Unmarshal([]byte("name: [unclosed"), &cfg); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestCodec_ContentType(t *testing.T) {
	if ct := (JSONCodec{}).ContentType(); ct != "application/json" {
		t.Errorf("expected 'application/json', got %q", ct)
	}
	if ct := (YAMLCodec{}).ContentType(); ct != "application/x-yaml" {
		t.Errorf("expected 'application/x-yaml', got %q", ct)
	}
}

func TestCodecFor(t *testing.T) {
	if _, ok := CodecFor("/etc/gram/config.json").(JSONCodec); !ok {
		t.Error("expected JSON codec for .json")
	}
	if _, ok := CodecFor("/etc/gram/CONFIG.JSON").(JSONCodec); !ok {
		t.Error("expected JSON codec for .JSON")
	}
	if _, ok := CodecFor("/etc/gram/config.yaml").(YAMLCodec); !ok {
		t.Error("expected YAML codec for .yaml")
	}
	if _, ok := CodecFor("/etc/gram/config").(YAMLCodec); !ok {
		t.Error("expected YAML codec without extension")
	}
}
