package util

import (
	"bytes"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
)

func TestLoggerWithMethod(t *testing.T) {
	var buf bytes.Buffer
	l := LoggerWithMethod("Foo.bar", log.NewLogfmtLogger(&buf))
	assert.NoError(t, l.Log("msg", "hello"))
	assert.Equal(t, "method=Foo.bar msg=hello\n", buf.String())
}

func TestLoggerWithSource(t *testing.T) {
	var buf bytes.Buffer
	base := log.NewLogfmtLogger(&buf)

	assert.NoError(t, LoggerWithSource("", base).Log("msg", "a"))
	assert.NoError(t, LoggerWithSource("classes2.dex", base).Log("msg", "b"))
	assert.Equal(t, "msg=a\nsource=classes2.dex msg=b\n", buf.String())
}
