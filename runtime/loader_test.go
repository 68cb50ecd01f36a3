package runtime

import (
	"testing"
	"testing/fstest"
	"tipster-chat/errors"

	"github.com/stretchr/testify/require"
)

func TestCensoredLoader_LoadAll(t *testing.T) {
	req := require.New(t)
	files := fstest.MapFS{
		"censored/en.txt":    {Data: []byte("cheat\r\nscam\n\n# comment\n")},
		"censored/fr.txt":    {Data: []byte("arnaque\nscam\n")},
		"censored/README.md": {Data: []byte("not a dictionary")},
	}

	data, err := NewCensoredLoader(files).LoadAll("censored")

	req.NoError(err)
	req.ElementsMatch([]string{"en", "fr"}, data.Languages)
	req.ElementsMatch([]string{"cheat", "scam", "arnaque"}, data.Words)
}

func TestCensoredLoader_Empty_Dictionaries(t *testing.T) {
	req := require.New(t)
	files := fstest.MapFS{
		"censored/en.txt": {Data: []byte("\n  \n")},
	}

	_, err := NewCensoredLoader(files).LoadAll("censored")

	req.ErrorIs(err, errors.ErrEmptyWords)
}
