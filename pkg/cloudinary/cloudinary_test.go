package cloudinary

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestFolderFor(t *testing.T) {
	require.Equal(t, "homefix/profiles/photo", FolderFor("/homefix/profiles/", "photo"))
	require.Equal(t, "homefix/profiles", FolderFor("homefix/profiles", " "))
	require.Equal(t, "past_work", FolderFor("", "past_work"))
}

func TestBuildPublicID(t *testing.T) {
	at := time.Unix(0, 42)
	require.Equal(t, "kitchen-tiles-42", buildPublicID("kitchen tiles.jpg", at))
	require.Equal(t, "upload-42", buildPublicID("###.png", at))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)
}
