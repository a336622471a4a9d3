package structs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFinalStatus(t *testing.T) {
	cases := []struct {
		Give   Status
		Expect bool
	}{
		{QUEUED, false},
		{LEASED, false},
		{RUNNING, false},
		{DONE, true},
		{FAILED, true},
		{Status(""), false},
		{Status("nonsense"), false},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("%s", c.Give), func(t *testing.T) {
			assert.Equal(t, c.Expect, IsFinalStatus(c.Give))
		})
	}
}

func TestToStatus(t *testing.T) {
	cases := []struct {
		Give   string
		Expect Status
	}{
		{"queued", QUEUED},
		{"QUEUED", QUEUED},
		{"Leased", LEASED},
		{"running", RUNNING},
		{"done", DONE},
		{"failed", FAILED},
		{"", Status("")},
		{"pending", Status("")},
	}

	for _, c := range cases {
		t.Run(c.Give, func(t *testing.T) {
			assert.Equal(t, c.Expect, ToStatus(c.Give))
		})
	}
}
