package domain

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
    assert.True(t, RoleUser.Valid())
    assert.True(t, RoleBot.Valid())
    assert.False(t, Role("assistant").Valid())
    assert.False(t, Role("").Valid())
}

func TestHasPlaceholderTitle(t *testing.T) {
    assert.True(t, (&Chat{Title: DefaultChatTitle}).HasPlaceholderTitle())
    assert.True(t, (&Chat{Title: PlaceholderChatTitle}).HasPlaceholderTitle())
    assert.False(t, (&Chat{Title: "Capital of Sweden"}).HasPlaceholderTitle())
}
