package midi

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// scanTimeout bounds port enumeration. CoreMIDI can hang here.
const scanTimeout = 3 * time.Second

var (
	ErrScanTimeout  = errors.New("MIDI port scan timed out")
	ErrPortNotFound = errors.New("MIDI port not found")
)

// Ports lists the names of the available ports
type Ports struct {
	In  []string
	Out []string
}

type scanResult struct {
	ins  []drivers.In
	outs []drivers.Out
}

func scan() (scanResult, error) {
	ch := make(chan scanResult, 1)
	go func() {
		ch <- scanResult{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()

	select {
	case r := <-ch:
		return r, nil
	case <-time.After(scanTimeout):
		// Fix on macOS: sudo killall coreaudiod midiserver
		return scanResult{}, ErrScanTimeout
	}
}

// ListPorts enumerates input and output ports
func ListPorts() (Ports, error) {
	r, err := scan()
	if err != nil {
		return Ports{}, err
	}
	var p Ports
	for _, in := range r.ins {
		p.In = append(p.In, in.String())
	}
	for _, out := range r.outs {
		p.Out = append(p.Out, out.String())
	}
	return p, nil
}

// matchPort returns the index of the first name containing want, ignoring
// case. An empty want matches the first name.
func matchPort(names []string, want string) int {
	want = strings.ToLower(strings.TrimSpace(want))
	for i, n := range names {
		if want == "" || strings.Contains(strings.ToLower(n), want) {
			return i
		}
	}
	return -1
}

func findOut(name string) (drivers.Out, error) {
	r, err := scan()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(r.outs))
	for i, o := range r.outs {
		names[i] = o.String()
	}
	i := matchPort(names, name)
	if i < 0 {
		return nil, errors.Wrapf(ErrPortNotFound, "output %q", name)
	}
	return r.outs[i], nil
}

func findIn(name string) (drivers.In, error) {
	r, err := scan()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(r.ins))
	for i, in := range r.ins {
		names[i] = in.String()
	}
	i := matchPort(names, name)
	if i < 0 {
		return nil, errors.Wrapf(ErrPortNotFound, "input %q", name)
	}
	return r.ins[i], nil
}
