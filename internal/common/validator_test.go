package common_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"stremio-cineby/internal/common"
)

func TestValidateContentType(t *testing.T) {
	tests := []struct {
		t       string
		wantErr assert.ErrorAssertionFunc
	}{
		{"movie", assert.NoError},
		{"series", assert.NoError},
		{"channel", assert.Error},
		{"tv", assert.Error},
		{"", assert.Error},
	}

	for _, tt := range tests {
		t.Run(tt.t, func(t *testing.T) {
			err := common.ValidateContentType(tt.t)
			tt.wantErr(t, err)
		})
	}
}

func TestValidateCatalogID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr assert.ErrorAssertionFunc
	}{
		{"cineby-trending", assert.NoError},
		{"cineby-movies", assert.NoError},
		{"cineby-series", assert.NoError},
		{"cineby-search", assert.NoError},
		{"cineby-other", assert.Error},
		{"", assert.Error},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := common.ValidateCatalogID(tt.id)
			tt.wantErr(t, err)
		})
	}
}

func TestParseMetaID(t *testing.T) {
	tests := []struct {
		id      string
		want    int
		wantErr assert.ErrorAssertionFunc
	}{
		{"cineby:42", 42, assert.NoError},
		{"cineby:0", 0, assert.NoError},
		{"cineby:", 0, assert.Error},
		{"cineby:abc", 0, assert.Error},
		{"cineby:42:1:2", 0, assert.Error},
		{"tt42", 0, assert.Error},
		{"42", 0, assert.Error},
		{"", 0, assert.Error},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := common.ParseMetaID(tt.id)
			tt.wantErr(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStreamID(t *testing.T) {
	tests := []struct {
		id          string
		wantID      int
		wantSeason  int
		wantEpisode int
		wantErr     assert.ErrorAssertionFunc
	}{
		{"cineby:42", 42, 0, 0, assert.NoError},
		{"cineby:42:2:5", 42, 2, 5, assert.NoError},
		{"cineby:42:2", 0, 0, 0, assert.Error},
		{"cineby:42:a:b", 0, 0, 0, assert.Error},
		{"tt42:2:5", 0, 0, 0, assert.Error},
		{"", 0, 0, 0, assert.Error},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			id, season, episode, err := common.ParseStreamID(tt.id)
			tt.wantErr(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantSeason, season)
			assert.Equal(t, tt.wantEpisode, episode)
		})
	}
}
