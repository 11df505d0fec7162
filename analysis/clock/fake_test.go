package clock

import (
	"fmt"

	"github.com/kali20gakki/msprof-sub029/analysis/capture"
)

// fakeSource serves metadata from memory keyed by "<root>/<domain>".
type fakeSource map[string]capture.Metadata

func (f fakeSource) Metadata(root capture.Root, id capture.DomainID) (capture.Metadata, error) {
	md, ok := f[root.Path+"/"+id.String()]
	if !ok {
		return capture.Metadata{Domain: id}, nil
	}
	md.Domain = id
	return md, nil
}

func str(s string) *string { return &s }

func startInfo(mono, cntvct int64) *capture.StartInfo {
	return &capture.StartInfo{
		ClockMonotonicRaw: str(fmt.Sprint(mono)),
		Cntvct:            str(fmt.Sprint(cntvct)),
	}
}
