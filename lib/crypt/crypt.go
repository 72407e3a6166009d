package crypt

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"math"
	"strconv"
)

func Md5(s string) string {
	h := md5.New()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

// CheckAuthKey web api verify
// md5Key is md5(authKey+timestamp), the timestamp may drift from now by maxSkew seconds.
func CheckAuthKey(authKey, md5Key string, timestamp, now, maxSkew int64) bool {
	if authKey == "" || md5Key == "" {
		return false
	}
	if math.Abs(float64(now-timestamp)) > float64(maxSkew) {
		return false
	}
	want := Md5(authKey + strconv.FormatInt(timestamp, 10))
	return subtle.ConstantTimeCompare([]byte(want), []byte(md5Key)) == 1
}
