// internal/i18n/i18n_test.go
package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslations(t *testing.T) {
	tr, err := New("./locales", "en")
	require.NoError(t, err)

	assert.Equal(t, "License not found", tr.T("en", KeyLicenseNotFound))
	assert.Equal(t, "找不到授權", tr.T("zh_TW", KeyLicenseNotFound))
	assert.Equal(t, "Invalid request", tr.T("en", KeyValidationInvalid, "request"))

	// unknown language falls back to the default
	assert.Equal(t, "License not found", tr.T("fr", KeyLicenseNotFound))
	// unknown key is returned as-is
	assert.Equal(t, "nope.missing", tr.T("en", "nope.missing"))

	assert.ElementsMatch(t, []string{"en", "zh_TW"}, tr.Languages())
}

func TestLocalesShareKeys(t *testing.T) {
	tr, err := New("./locales", "en")
	require.NoError(t, err)

	en := tr.translations["en"]
	zh := tr.translations["zh_TW"]
	for key := range en {
		_, ok := zh[key]
		assert.True(t, ok, "zh_TW is missing %s", key)
	}
	assert.Len(t, zh, len(en))
}

func TestNewMissingDirectory(t *testing.T) {
	_, err := New(t.TempDir(), "en")
	assert.Error(t, err)
}
