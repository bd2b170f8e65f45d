//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package main

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/golang/glog"
	"golang.org/x/crypto/ssh/terminal"
	"golang.org/x/sys/unix"
)

// TermSize is the terminal size in cells and, where known, in pixels.
type TermSize struct {
	WSRow, WSCol       uint
	WSXPixel, WSYPixel uint
}

var kittySizeReply = regexp.MustCompile(`\[4;(\d+);(\d+)t`)

func GetTermSize() (TermSize, error) {
	f, err := os.OpenFile("/dev/tty", unix.O_NOCTTY|unix.O_CLOEXEC|unix.O_NDELAY|unix.O_RDWR, 0666)
	if err != nil {
		return stdinTermSize()
	}
	defer f.Close()

	sz, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return stdinTermSize()
	}
	ts := TermSize{WSRow: uint(sz.Row), WSCol: uint(sz.Col), WSXPixel: uint(sz.Xpixel), WSYPixel: uint(sz.Ypixel)}
	if ts.WSXPixel == 0 && ts.WSYPixel == 0 && os.Getenv("TERM") == "xterm-kitty" {
		ts.WSXPixel, ts.WSYPixel = askKittyPixels(f)
	}
	return ts, nil
}

// askKittyPixels asks the terminal for its window size in pixels with CSI 14 t.
// The reply looks like ESC [4;<height>;<width>t.
func askKittyPixels(f *os.File) (w, h uint) {
	state, err := terminal.MakeRaw(int(f.Fd()))
	if err != nil {
		return 0, 0
	}
	defer terminal.Restore(int(f.Fd()), state)

	fmt.Print("\033[14t")
	// TODO: bound the read with a deadline; a terminal that never answers blocks here.
	reply, err := bufio.NewReader(os.Stdin).ReadString('t')
	if err != nil {
		glog.V(1).Infof("defprint: reading pixel size reply: %v", err)
		return 0, 0
	}
	m := kittySizeReply.FindStringSubmatch(reply)
	if len(m) != 3 {
		return 0, 0
	}
	height, errH := strconv.Atoi(m[1])
	width, errW := strconv.Atoi(m[2])
	if errH != nil || errW != nil {
		return 0, 0
	}
	return uint(width), uint(height)
}

func stdinTermSize() (TermSize, error) {
	w, h, err := terminal.GetSize(0)
	if err != nil {
		return TermSize{}, err
	}
	return TermSize{WSRow: uint(h), WSCol: uint(w)}, nil
}
