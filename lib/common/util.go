package common

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const TimeLayout = "2006-01-02 15:04:05"

// GetIpByAddr
// return "2001:db8::1"
func GetIpByAddr(host string) string {
	if len(host) == 0 {
		return host
	}
	var idx int
	// IPv6
	if host[0] == '[' {
		if idx = strings.IndexByte(host, ']'); idx != -1 {
			return host[1:idx]
		}
		return ""
	}
	// IPv4 or Domain
	if idx = strings.LastIndexByte(host, ':'); idx != -1 && idx == strings.IndexByte(host, ':') {
		return host[:idx]
	}
	return host
}

// GetIpByNetAddr host part of a net.Addr, without zone
func GetIpByNetAddr(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP.String()
	case *net.UDPAddr:
		return a.IP.String()
	}
	return GetIpByAddr(addr.String())
}

func BuildAddress(host string, port string) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]:" + port
	}
	return host + ":" + port
}

// GetBoolByStr get bool by str
func GetBoolByStr(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on":
		return true
	}
	return false
}

// GetIntNoErrByStr int
func GetIntNoErrByStr(str string) int {
	i, _ := strconv.Atoi(strings.TrimSpace(str))
	return i
}

// GetTimeNoErrByStr accepts unix seconds, unix milliseconds or any layout dateparse knows.
// Unparseable input yields the zero time.
func GetTimeNoErrByStr(str string) time.Time {
	str = strings.TrimSpace(str)
	if str == "" {
		return time.Time{}
	}
	if timestamp, err := strconv.ParseInt(str, 10, 64); err == nil {
		if timestamp > 1_000_000_000_000 {
			return time.UnixMilli(timestamp)
		}
		return time.Unix(timestamp, 0)
	}
	if t, err := dateparse.ParseLocal(str); err == nil {
		return t
	}
	return time.Time{}
}

func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// TrimArr throw the empty element of the string array
func TrimArr(arr []string) []string {
	newArr := make([]string, 0)
	for _, v := range arr {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			newArr = append(newArr, trimmed)
		}
	}
	return newArr
}

// FileExists Determine whether the file exists
func FileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}
