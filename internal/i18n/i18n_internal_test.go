package i18n

import (
	"testing"
)

func TestNewLocalizer(t *testing.T) {
	localizer, err := NewLocalizer()
	if err != nil {
		t.Fatalf("Failed to create localizer: %v", err)
	}

	if localizer == nil {
		t.Fatal("Localizer is nil")
	}

	for _, lang := range Languages() {
		if _, ok := localizer.translations[lang]; !ok {
			t.Errorf("%s translations not loaded", lang)
		}
	}
}

func TestLocalesHaveSameKeys(t *testing.T) {
	localizer, err := NewLocalizer()
	if err != nil {
		t.Fatalf("Failed to create localizer: %v", err)
	}

	defaults := localizer.translations[DefaultLanguage]
	for _, lang := range Languages() {
		for key := range defaults {
			if _, ok := localizer.translations[lang][key]; !ok {
				t.Errorf("key %q missing in %s", key, lang)
			}
		}
		if len(localizer.translations[lang]) != len(defaults) {
			t.Errorf("%s has %d keys, want %d", lang, len(localizer.translations[lang]), len(defaults))
		}
	}
}

func TestGet(t *testing.T) {
	localizer, err := NewLocalizer()
	if err != nil {
		t.Fatalf("Failed to create localizer: %v", err)
	}

	tests := []struct {
		name     string
		lang     string
		key      string
		expected string
	}{
		{
			name:     "Portuguese status label",
			lang:     "pt",
			key:      "label.status.pending",
			expected: "Em análise",
		},
		{
			name:     "English status label",
			lang:     "en",
			key:      "label.status.resolved",
			expected: "Resolved",
		},
		{
			name:     "Fallback to Portuguese",
			lang:     "unknown",
			key:      "label.status.dismissed",
			expected: "Devolutiva",
		},
		{
			name:     "Non-existent key returns key itself",
			lang:     "pt",
			key:      "non.existent.key",
			expected: "non.existent.key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := localizer.Get(tt.lang, tt.key)
			if result != tt.expected {
				t.Errorf("Get(%q, %q) = %q, want %q", tt.lang, tt.key, result, tt.expected)
			}
		})
	}
}

func TestGetWithData(t *testing.T) {
	localizer, err := NewLocalizer()
	if err != nil {
		t.Fatalf("Failed to create localizer: %v", err)
	}

	tests := []struct {
		name     string
		lang     string
		key      string
		data     map[string]any
		expected string
	}{
		{
			name:     "Replace single placeholder in Portuguese",
			lang:     "pt",
			key:      "status.empty",
			data:     map[string]any{"contract": "123456"},
			expected: "📭 Nenhuma ocorrência para o contrato 123456.",
		},
		{
			name:     "Replace multiple placeholders",
			lang:     "en",
			key:      "removeuser.done",
			data:     map[string]any{"id": 42, "count": 3},
			expected: "🗑 Technician 42 removed together with 3 occurrence(s).",
		},
		{
			name:     "Unused data is ignored",
			lang:     "pt",
			key:      "registration.cancelled",
			data:     map[string]any{"name": "JOÃO"},
			expected: "🚫 Cadastro cancelado.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := localizer.GetWithData(tt.lang, tt.key, tt.data)
			if result != tt.expected {
				t.Errorf("GetWithData(%q, %q, %v) = %q, want %q", tt.lang, tt.key, tt.data, result, tt.expected)
			}
		})
	}
}
