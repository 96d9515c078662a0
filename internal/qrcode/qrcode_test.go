package qrcode

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestPNG(t *testing.T) {
	t.Parallel()

	png, err := PNG("otpauth://totp/Issuer:alice?secret=GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", 0)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, pngMagic))

	_, err = PNG("  ", 128)
	require.ErrorIs(t, err, ErrEmptyContent)
}

func TestDataURI(t *testing.T) {
	t.Parallel()

	uri, err := DataURI("otpauth://totp/Issuer:alice?secret=GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", 128)
	require.NoError(t, err)

	const prefix = "data:image/png;base64,"
	require.True(t, strings.HasPrefix(uri, prefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, pngMagic))
}
