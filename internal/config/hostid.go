package config

import (
	"os"
	"strconv"
	"strings"
)

// HostLocalID is the teacher's utility.GetIDFromHostname
// (fa17-cs425-g28-NN.host -> NN), generalized to any hostname whose
// first label ends in a decimal run, and used only as a fallback when
// -B/local-base wasn't passed explicitly.
func HostLocalID() (int, bool) {
	hostname, err := os.Hostname()
	if err != nil {
		return 0, false
	}
	label := strings.SplitN(hostname, ".", 2)[0]
	i := len(label)
	for i > 0 && label[i-1] >= '0' && label[i-1] <= '9' {
		i--
	}
	digits := label[i:]
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}
