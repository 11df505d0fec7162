package extractor

import "strconv"

// Transport and link codes of collective-communication rows. Never mutated.
var (
	transportTypes = map[int64]string{
		0: "SDMA",
		1: "RDMA",
		2: "LOCAL",
	}
	linkTypes = map[int64]string{
		0: "ON_CHIP",
		1: "HCCS",
		2: "PCIE",
		3: "ROCE",
		4: "SIO",
		5: "HCCS_SW",
	}
)

func enumName(names map[int64]string, code int64) string {
	if s, ok := names[code]; ok {
		return s
	}
	return "INVALID_TYPE(" + strconv.FormatInt(code, 10) + ")"
}
