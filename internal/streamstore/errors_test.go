package streamstore

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsNil(redis.Nil))
	assert.False(t, IsNil(errors.New("other")))

	assert.True(t, IsNoGroup(errors.New("NOGROUP No such consumer group 'g'")))
	assert.False(t, IsNoGroup(errors.New("ERR something")))
	assert.False(t, IsNoGroup(nil))

	assert.True(t, IsBusyGroup(errors.New("BUSYGROUP Consumer Group name already exists")))
	assert.False(t, IsBusyGroup(nil))
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(redis.Nil))
	assert.False(t, IsTransient(errors.New("ERR wrong number of arguments")))

	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(errors.New("READONLY You can't write against a read only replica.")))
	assert.True(t, IsTransient(errors.New("LOADING Redis is loading the dataset in memory")))
	assert.True(t, IsTransient(errors.New("read tcp 10.0.0.1:6379: connection reset by peer")))
	assert.True(t, IsTransient(errors.New("dial tcp 10.0.0.1:6379: connection refused")))
	assert.True(t, IsTransient(errors.New("unexpected EOF")))
}
