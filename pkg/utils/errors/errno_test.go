package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestMakeAndParseCode(t *testing.T) {
	code := MakeCode(ServiceNILM, CategoryNetwork, 2)
	assert.Equal(t, 5010002, code)

	service, category, seq := ParseCode(code)
	assert.Equal(t, ServiceNILM, service)
	assert.Equal(t, CategoryNetwork, category)
	assert.Equal(t, 2, seq)
	assert.True(t, IsServerError(code))
	assert.False(t, IsClientError(code))
	assert.True(t, IsClientError(ErrInvalidLimit.Code))
}

func TestErrnoWithCauseKeepsOriginal(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	wrapped := ErrDatabase.WithCause(cause)

	assert.Nil(t, ErrDatabase.Unwrap())
	assert.Equal(t, cause, wrapped.Unwrap())
	assert.Contains(t, wrapped.Error(), "connection refused")
	assert.True(t, Is(wrapped, ErrDatabase))
}

func TestErrnoWithMessage(t *testing.T) {
	e := ErrSessionNotFound.WithMessagef("No chat history found for session %s", "abc")
	assert.Equal(t, "No chat history found for session abc", e.MessageEN)
	assert.Equal(t, ErrSessionNotFound.Code, e.Code)
	assert.Equal(t, http.StatusNotFound, e.HTTPStatus())
	assert.Equal(t, "会话没有聊天记录", e.Message("zh"))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("load: %w", ErrModelUnavailable)
	e := FromError(wrapped)
	require.NotNil(t, e)
	assert.Equal(t, ErrModelUnavailable.Code, e.Code)
	assert.Equal(t, http.StatusServiceUnavailable, e.HTTPStatus())
	assert.Equal(t, codes.Unavailable, e.GRPCStatus())

	plain := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.True(t, IsCode(wrapped, ErrModelUnavailable.Code))
	assert.Equal(t, -1, GetCode(fmt.Errorf("x")))
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(New(ErrInternal.Code, 500, codes.Internal, "dup", "重复"))
	})

	e, ok := Lookup(ErrModelUnavailable.Code)
	require.True(t, ok)
	assert.Equal(t, ErrModelUnavailable, e)
}

func TestErrnoFormat(t *testing.T) {
	e := ErrDeviceQuery.WithCause(fmt.Errorf("db down"))
	out := fmt.Sprintf("%+v", e)
	assert.Contains(t, out, "HTTP 500")
	assert.Contains(t, out, "caused by: db down")
}
