package formatter

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePathParsing(t *testing.T) {

	testCases := []struct {
		filePath         string
		expectedFileName string
	}{
		// locally cloned repo
		{
			filePath:         "/Users/user/src/trustchain/pki/sign.go",
			expectedFileName: "pki/sign.go",
		},
		// locally cloned repo with duplicated name in path
		{
			filePath:         "/Users/user/trustchain/repos/trustchain/keystore/store.go",
			expectedFileName: "keystore/store.go",
		},
		// locally cloned repo with renamed package root
		{
			filePath:         "/Users/user/src/my-keys/formatter/formatter.go",
			expectedFileName: "formatter/formatter.go",
		},
	}

	hook := NewContextHook()

	for _, testCase := range testCases {
		parsedString := hook.parseSrc(testCase.filePath)
		assert.Equal(t, testCase.expectedFileName, parsedString, "Parsed filepath does not match expected for %s", testCase.filePath)
	}

}

func TestTextFormatterSortsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	SetTextFormatter(logger)

	logger.WithField("b", 2).WithField("a", 1).Info("hello")

	line := buf.String()
	require.Contains(t, line, "INFO [a: 1, b: 2] ")
	assert.Contains(t, line, "formatter/hook_test.go:")
	assert.Contains(t, line, ": hello\n")
}

func TestJSONFormatterReportsSource(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	SetJSONFormatter(logger)

	logger.WithField("fingerprint", "abc").Warn("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "abc", entry["fingerprint"])
	assert.Contains(t, entry["source"], "formatter/hook_test.go:")
	assert.NotContains(t, entry, "func")
	assert.NotContains(t, entry, "file")
}
