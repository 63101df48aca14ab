package school

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubdomainFromHost(t *testing.T) {
	tests := []struct {
		host       string
		baseDomain string
		want       string
	}{
		{"gs-amani.academiahub.local", "academiahub.local", "gs-amani"},
		{"GS-Amani.AcademiaHub.local:8000", "academiahub.local", "gs-amani"},
		{"gs-amani.academiahub.local.", "academiahub.local", "gs-amani"},
		{"academiahub.local", "academiahub.local", ""},
		{"www.academiahub.local", "academiahub.local", ""},
		{"a.b.academiahub.local", "academiahub.local", ""},
		{"gs-amani.other.com", "academiahub.local", ""},
		{"127.0.0.1:8000", "academiahub.local", ""},
		{"[::1]:8000", "academiahub.local", ""},
		{"localhost:8000", "", ""},
		{"lycee.example.com", "", "lycee"},
		{"api.example.com", "", ""},
		{"", "academiahub.local", ""},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, SubdomainFromHost(tt.host, tt.baseDomain))
		})
	}
}
