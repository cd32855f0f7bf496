package geo

import "testing"

func TestIsRemote(t *testing.T) {
	tests := []struct {
		loc  string
		want bool
	}{
		{"Remote, USA", true},
		{"Anywhere", true},
		{"Work From Home", true},
		{"San Francisco, CA", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsRemote(tt.loc); got != tt.want {
			t.Errorf("IsRemote(%q) = %v, want %v", tt.loc, got, tt.want)
		}
	}
}

func TestMentionsCountry(t *testing.T) {
	countries := []string{"USA", "United States"}
	if !MentionsCountry("Remote, usa", countries) {
		t.Error("expected usa to match")
	}
	if !MentionsCountry("Dallas, Texas, United States", countries) {
		t.Error("expected United States to match")
	}
	if MentionsCountry("Toronto, Canada", countries) {
		t.Error("did not expect Canada to match")
	}
	if MentionsCountry("Anywhere", nil) {
		t.Error("no countries should match nothing")
	}
}

func TestIsUSPlace(t *testing.T) {
	tests := []struct {
		loc  string
		want bool
	}{
		{"San Francisco, CA", true},
		{"Austin, tx", true},
		{"New York, NY 10001", true},
		{"Princeton, NJ 08540", true},
		{"Chicago", true},
		{"North Carolina", true},
		{"Seattle-Tacoma", true},
		{"Toronto, ON", false},
		{"London, UK", false},
		{"Based in Berlin", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsUSPlace(tt.loc); got != tt.want {
			t.Errorf("IsUSPlace(%q) = %v, want %v", tt.loc, got, tt.want)
		}
	}
}
