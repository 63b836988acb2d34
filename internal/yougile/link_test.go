package yougile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	assert.Equal(t, "Marketing-Team", Slug("Marketing   Team"))
	assert.Equal(t, "a-b", Slug("a - b"))
	assert.Equal(t, "", Slug("   "))
	assert.Equal(t, "%D0%9F%D1%80%D0%BE%D0%B5%D0%BA%D1%82-1", Slug("Проект 1"))

	assert.Equal(t, "R%26D", Slug("R&D"))
	assert.Equal(t, "C%2B%2B", Slug("C++"))
	assert.Equal(t, "a/b", Slug("a/b"))
	assert.Equal(t, "Q1%3AQ2", Slug("Q1:Q2"))
	assert.Equal(t, "v1.2_beta~x", Slug("v1.2_beta~x"))
	assert.Equal(t, "%28old%29-%23tag%3F", Slug("(old) #tag?"))
}

func TestHost(t *testing.T) {
	assert.Equal(t, "ru.yougile.com", Host("https://ru.yougile.com/api-v2"))
	assert.Equal(t, "yougile.example.com", Host("https://yougile.example.com/api-v2/"))
	assert.Equal(t, "ru.yougile.com", Host(""))
}

func TestTaskLink(t *testing.T) {
	assert.Equal(t,
		"https://ru.yougile.com/team/abc123/Dev-Team#DEV-12",
		TaskLink("ru.yougile.com", "abc123", "Dev Team", "DEV-12"))
	assert.Equal(t,
		"https://ru.yougile.com/team/abc123",
		TaskLink("ru.yougile.com", "abc123", "Dev Team", ""))
	assert.Equal(t,
		"https://ru.yougile.com/team/abc123",
		TaskLink("ru.yougile.com", "abc123", "", "DEV-12"))
}
