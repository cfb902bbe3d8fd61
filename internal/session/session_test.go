package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticLifecycle(t *testing.T) {
	s := NewStatic()

	_, ok := s.Principal()
	assert.False(t, ok)

	s.SignIn("a@x.com")
	email, ok := s.Principal()
	assert.True(t, ok)
	assert.Equal(t, "a@x.com", email)

	s.SignOut()
	_, ok = s.Principal()
	assert.False(t, ok)
}

func TestStaticNotifiesOnChange(t *testing.T) {
	s := NewStatic()

	type event struct {
		email string
		ok    bool
	}
	var seen []event
	unsub := s.OnChange(func(email string, ok bool) { seen = append(seen, event{email, ok}) })

	s.SignIn("a@x.com")
	s.SignOut()
	unsub()
	s.SignIn("b@x.com")

	assert.Equal(t, []event{{"a@x.com", true}, {"", false}}, seen)
}
