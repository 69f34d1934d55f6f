package errclass

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultClassifiesKnownCode(t *testing.T) {
	class, phrase := Default.Classify(404)
	assert.Equal(t, ClientError, class)
	assert.Equal(t, "Not Found", phrase)
}

func TestDefaultClassifiesUnknownCodeByRange(t *testing.T) {
	class, phrase := Default.Classify(499)
	assert.Equal(t, ClientError, class)
	assert.Empty(t, phrase)
}

func TestDefaultClassifiesOutOfRangeAsServerError(t *testing.T) {
	class, _ := Default.Classify(0)
	assert.Equal(t, ServerError, class)
}

func TestIsZero(t *testing.T) {
	assert.True(t, Error{}.IsZero())
	assert.False(t, Error{Code: 200}.IsZero())
}

func TestClassifierFuncAdapts(t *testing.T) {
	var c Classifier = ClassifierFunc(func(code int) (Class, string) { return Transport, "boom" })
	class, phrase := c.Classify(0)
	assert.Equal(t, Transport, class)
	assert.Equal(t, "boom", phrase)
}
