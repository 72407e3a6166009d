package crypt

import (
	"strconv"
	"testing"
)

func TestMd5(t *testing.T) {
	if got := Md5("a"); got != "0cc175b9c0f1b6a831c399e269772661" {
		t.Fatalf("unexpected digest %q", got)
	}
	if Md5("a") == Md5("b") {
		t.Fatal("digest collision")
	}
}

func TestCheckAuthKey(t *testing.T) {
	const key = "secret"
	now := int64(1700000000)
	sign := func(ts int64) string { return Md5(key + strconv.FormatInt(ts, 10)) }
	if !CheckAuthKey(key, sign(now-5), now-5, now, 20) {
		t.Fatal("valid signature rejected")
	}
	if CheckAuthKey(key, sign(now-60), now-60, now, 20) {
		t.Fatal("stale signature accepted")
	}
	if CheckAuthKey(key, sign(now), now+1, now, 20) {
		t.Fatal("signature for another timestamp accepted")
	}
	if CheckAuthKey("", Md5(strconv.FormatInt(now, 10)), now, now, 20) {
		t.Fatal("empty auth key must never verify")
	}
}
