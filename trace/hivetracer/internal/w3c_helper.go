package internal

import (
	"encoding/hex"
	"errors"
	"strings"
)

const (
	minLength       = 55
	parentDelimiter = "-"

	stateDelimiter = ","
	stateEqual     = "="
	maxMembers     = 32
)

const sampledFlag = 0x01

var supportedVersions = map[int]struct{}{0: {}}

type TraceParent struct {
	Version      int
	TraceID      string
	ParentSpanID string
	TraceFlags   int
}

func (t TraceParent) Sampled() bool {
	return t.TraceFlags&sampledFlag == sampledFlag
}

type TraceState struct {
	Members []Member
}

type Member struct {
	Key   string
	Value string
}

func (t *TraceState) Get(key string) string {
	for _, m := range t.Members {
		if m.Key == key {
			return m.Value
		}
	}
	return ""
}

var DefaultSimpleW3CFormatParser = SimpleW3CFormatParser{}

// SimpleW3CFormatParser is a lenient w3c trace-context parser; it validates
// lengths and the all-zero ids but skips most character-class constraints.
type SimpleW3CFormatParser struct{}

// ParseTraceParent parses "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
func (w SimpleW3CFormatParser) ParseTraceParent(traceParent string) (TraceParent, error) {
	ret := TraceParent{}
	if len(traceParent) < minLength {
		return ret, errors.New("invalid trace parent: shorter than 55 chars")
	}
	fields := strings.Split(traceParent, parentDelimiter)
	if len(fields) < 4 {
		return ret, errors.New("invalid trace parent: fewer than 4 fields")
	}

	versionStr := fields[0]
	if len(versionStr) != 2 {
		return ret, errors.New("invalid trace parent: bad version length")
	}
	versionBytes, err := hex.DecodeString(versionStr)
	if err != nil || len(versionBytes) == 0 {
		return ret, errors.New("invalid trace parent: bad version")
	}
	version := int(versionBytes[0])
	if _, ok := supportedVersions[version]; !ok {
		return ret, errors.New("invalid trace parent: unsupported version")
	}
	ret.Version = version

	traceID := fields[1]
	if len(traceID) != 32 {
		return ret, errors.New("invalid trace parent: trace id is not 32 chars")
	}
	if traceID == "00000000000000000000000000000000" {
		return ret, errors.New("invalid trace parent: all-zero trace id")
	}
	ret.TraceID = traceID

	spanID := fields[2]
	if len(spanID) != 16 {
		return ret, errors.New("invalid trace parent: span id is not 16 chars")
	}
	if spanID == "0000000000000000" {
		return ret, errors.New("invalid trace parent: all-zero span id")
	}
	ret.ParentSpanID = spanID

	flagsStr := fields[3]
	if len(flagsStr) != 2 {
		return ret, errors.New("invalid trace parent: bad flags length")
	}
	flagsBytes, err := hex.DecodeString(flagsStr)
	if err != nil || len(flagsBytes) == 0 {
		return ret, errors.New("invalid trace parent: bad flags")
	}
	ret.TraceFlags = int(flagsBytes[0])

	return ret, nil
}

// ParseTraceState accepts any key=value member list; duplicate keys and
// oversized lists are rejected, everything else passes through.
func (w SimpleW3CFormatParser) ParseTraceState(traceState string) (TraceState, error) {
	ret := TraceState{}
	if len(traceState) == 0 {
		return ret, nil
	}
	memberList := make([]Member, 0)
	keySet := make(map[string]struct{})
	for _, memberStr := range strings.Split(traceState, stateDelimiter) {
		if len(memberStr) == 0 {
			continue
		}
		if keyValue := strings.Split(memberStr, stateEqual); len(keyValue) == 2 {
			member := Member{
				Key:   keyValue[0],
				Value: keyValue[1],
			}
			if _, ok := keySet[member.Key]; ok {
				return ret, errors.New("invalid trace state: duplicated key")
			}
			keySet[member.Key] = struct{}{}
			memberList = append(memberList, member)
		}
	}
	if len(memberList) > maxMembers {
		return ret, errors.New("invalid trace state: too many members")
	}
	ret.Members = memberList
	return ret, nil
}
