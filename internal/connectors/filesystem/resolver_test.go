package filesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want string
	}{
		{
			name: "file URI is converted to local path",
			uri:  "file:///Users/test/papers/attention.pdf",
			want: "/Users/test/papers/attention.pdf",
		},
		{
			name: "escaped spaces are decoded",
			uri:  "file:///Users/test/my%20papers/a.pdf",
			want: "/Users/test/my papers/a.pdf",
		},
		{
			name: "raw spaces survive",
			uri:  "file:///Users/test/my papers/a.pdf",
			want: "/Users/test/my papers/a.pdf",
		},
		{
			name: "bare path passes through unchanged",
			uri:  "/tmp/paper.pdf",
			want: "/tmp/paper.pdf",
		},
		{
			name: "relative path passes through unchanged",
			uri:  "papers/paper.pdf",
			want: "papers/paper.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePath(tt.uri))
		})
	}
}
