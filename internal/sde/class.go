package sde

import (
	"strings"

	"shortcircuit/internal/graph"
)

// Class is the security or wormhole class of a solar system.
type Class uint8

const (
	ClassUnknown Class = iota
	ClassHS
	ClassLS
	ClassNS
	ClassC1
	ClassC2
	ClassC3
	ClassC4
	ClassC5
	ClassC6
	ClassC12
	ClassC13
	ClassC14
	ClassC15
	ClassC16
	ClassC17
	ClassC18
)

var classNames = map[Class]string{
	ClassUnknown: "Unknown",
	ClassHS:      "HS",
	ClassLS:      "LS",
	ClassNS:      "NS",
	ClassC1:      "C1",
	ClassC2:      "C2",
	ClassC3:      "C3",
	ClassC4:      "C4",
	ClassC5:      "C5",
	ClassC6:      "C6",
	ClassC12:     "C12",
	ClassC13:     "C13",
	ClassC14:     "C14",
	ClassC15:     "C15",
	ClassC16:     "C16",
	ClassC17:     "C17",
	ClassC18:     "C18",
}

var classByName = func() map[string]Class {
	m := make(map[string]Class, len(classNames))
	for c, n := range classNames {
		m[strings.ToUpper(n)] = c
	}
	return m
}()

// ParseClass converts a class code such as "HS" or "C13". Unrecognized codes
// map to ClassUnknown.
func ParseClass(s string) Class {
	if c, ok := classByName[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return c
	}
	return ClassUnknown
}

func (c Class) String() string {
	if n, ok := classNames[c]; ok {
		return n
	}
	return "Unknown"
}

// IsKSpace reports whether c is high, low or null security space.
func (c Class) IsKSpace() bool {
	return c == ClassHS || c == ClassLS || c == ClassNS
}

// IsDrifter reports whether c is one of the drifter classes C14..C18.
func (c Class) IsDrifter() bool {
	return c >= ClassC14 && c <= ClassC18
}

// RiskBucket groups classes for risk-weighted routing.
type RiskBucket int

const (
	RiskHS RiskBucket = iota
	RiskLS
	RiskNS
	RiskWSpace
)

func (b RiskBucket) String() string {
	switch b {
	case RiskHS:
		return "HS"
	case RiskLS:
		return "LS"
	case RiskNS:
		return "NS"
	}
	return "WH"
}

// RiskBucket maps c to its risk bucket. Anything outside k-space, including
// Unknown, counts as wormhole space.
func (c Class) RiskBucket() RiskBucket {
	switch c {
	case ClassHS:
		return RiskHS
	case ClassLS:
		return RiskLS
	case ClassNS:
		return RiskNS
	}
	return RiskWSpace
}

// size-inference buckets, the row/column order of sizeMatrix
const (
	bucketKSpace = iota
	bucketC1
	bucketC2
	bucketC3
	bucketC4
	bucketC5
	bucketC6
	bucketC12
	bucketC13
	bucketDrifter
)

// sizeBucket returns the inference bucket for c, or false for Unknown.
func (c Class) sizeBucket() (int, bool) {
	switch {
	case c.IsKSpace():
		return bucketKSpace, true
	case c.IsDrifter():
		return bucketDrifter, true
	}
	switch c {
	case ClassC1:
		return bucketC1, true
	case ClassC2:
		return bucketC2, true
	case ClassC3:
		return bucketC3, true
	case ClassC4:
		return bucketC4, true
	case ClassC5:
		return bucketC5, true
	case ClassC6:
		return bucketC6, true
	case ClassC12:
		return bucketC12, true
	case ClassC13:
		return bucketC13, true
	}
	return 0, false
}

const (
	sm = graph.Small
	md = graph.Medium
	lg = graph.Large
	xl = graph.XLarge
)

// sizeMatrix gives the typical wormhole size between two class buckets.
// C13 (shattered, frigate-only) is always Small.
var sizeMatrix = [10][10]graph.Size{
	//             kspace C1  C2  C3  C4  C5  C6  C12 C13 drifter
	bucketKSpace:  {xl, md, lg, lg, lg, xl, xl, lg, sm, lg},
	bucketC1:      {md, md, md, md, md, md, md, md, sm, md},
	bucketC2:      {lg, md, lg, lg, lg, lg, lg, lg, sm, lg},
	bucketC3:      {lg, md, lg, lg, lg, lg, lg, lg, sm, lg},
	bucketC4:      {lg, md, lg, lg, lg, lg, lg, lg, sm, lg},
	bucketC5:      {xl, md, lg, lg, lg, xl, xl, lg, sm, lg},
	bucketC6:      {xl, md, lg, lg, lg, xl, xl, lg, sm, lg},
	bucketC12:     {lg, md, lg, lg, lg, lg, lg, lg, sm, lg},
	bucketC13:     {sm, sm, sm, sm, sm, sm, sm, sm, sm, sm},
	bucketDrifter: {lg, md, lg, lg, lg, lg, lg, lg, sm, lg},
}

// InferSize returns the typical size of a wormhole between systems of classes
// a and b. It fails only when either class is Unknown.
func InferSize(a, b Class) (graph.Size, bool) {
	ra, ok := a.sizeBucket()
	if !ok {
		return 0, false
	}
	rb, ok := b.sizeBucket()
	if !ok {
		return 0, false
	}
	return sizeMatrix[ra][rb], true
}
