package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name    string
		actor   Actor
		ownerID string
		action  Action
		want    Decision
	}{
		{
			name:    "user acting on own resource",
			actor:   Actor{ID: "5", Role: "user"},
			ownerID: "5",
			action:  ActionUpdate,
			want:    Allow,
		},
		{
			name:    "user acting on another user's resource",
			actor:   Actor{ID: "5", Role: "user"},
			ownerID: "9",
			action:  ActionUpdate,
			want:    Deny,
		},
		{
			name:    "admin acting on another user's resource",
			actor:   Actor{ID: "1", Role: "admin"},
			ownerID: "9",
			action:  ActionUpdate,
			want:    Allow,
		},
		{
			name:    "admin acting on own resource",
			actor:   Actor{ID: "1", Role: "admin"},
			ownerID: "1",
			action:  ActionDelete,
			want:    Allow,
		},
		{
			name:    "unrecognised role",
			actor:   Actor{ID: "5", Role: "manager"},
			ownerID: "5",
			action:  ActionView,
			want:    Deny,
		},
		{
			name:    "empty role",
			actor:   Actor{ID: "5"},
			ownerID: "5",
			action:  ActionView,
			want:    Deny,
		},
		{
			name:    "user with empty id never matches empty owner",
			actor:   Actor{Role: "user"},
			ownerID: "",
			action:  ActionView,
			want:    Deny,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Authorize(tt.actor, tt.ownerID, tt.action)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.want == Allow, got.Allowed())
		})
	}
}
