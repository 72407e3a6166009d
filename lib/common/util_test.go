package common

import "testing"

func TestGetBoolByStr(t *testing.T) {
	for in, want := range map[string]bool{
		"1": true, "true": true, "TRUE": true, " on ": true,
		"0": false, "false": false, "off": false, "": false, "yes please": false,
	} {
		if got := GetBoolByStr(in); got != want {
			t.Fatalf("%q: got %v, want %v", in, got, want)
		}
	}
}

func TestBuildAddress(t *testing.T) {
	if got := BuildAddress("127.0.0.1", "80"); got != "127.0.0.1:80" {
		t.Fatalf("got %q", got)
	}
	if got := BuildAddress("::1", "80"); got != "[::1]:80" {
		t.Fatalf("got %q", got)
	}
}
