package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ui funnels all terminal input through a single reader goroutine so the
// menu loops and the live views can share stdin without fighting over it.
type ui struct {
	lines chan string
	out   io.Writer
}

func newUI(in io.Reader, out io.Writer) *ui {
	u := &ui{lines: make(chan string), out: out}
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			u.lines <- strings.TrimSpace(sc.Text())
		}
		close(u.lines)
	}()
	return u
}

func (u *ui) printf(format string, args ...any) {
	fmt.Fprintf(u.out, format+"\n", args...)
}

// Info and Error satisfy the presenter's notifier.
func (u *ui) Info(msg string)  { u.printf(">> %s", msg) }
func (u *ui) Error(msg string) { u.printf("!! %s", msg) }

// readLine blocks until the next input line; ok is false once stdin closes.
func (u *ui) readLine(prompt string) (string, bool) {
	if prompt != "" {
		fmt.Fprint(u.out, prompt+" ")
	}
	line, ok := <-u.lines
	return line, ok
}

func (u *ui) Confirm(title, message string) bool {
	u.printf("%s", title)
	line, ok := u.readLine(message + " [y/N]:")
	if !ok {
		return false
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true
	}
	return false
}

func (u *ui) promptString(label string) string {
	line, _ := u.readLine(label + ":")
	return line
}

func (u *ui) promptFloat(label string) (float64, error) {
	line, ok := u.readLine(label + ":")
	if !ok {
		return 0, io.EOF
	}
	return strconv.ParseFloat(line, 64)
}

func (u *ui) promptInt(label string) (int, error) {
	line, ok := u.readLine(label + ":")
	if !ok {
		return 0, io.EOF
	}
	return strconv.Atoi(line)
}

// promptChoice shows numbered options and returns the chosen index, or -1
// on blank input.
func (u *ui) promptChoice(label string, options []string) int {
	u.printf("%s", label)
	for i, opt := range options {
		u.printf("  %d) %s", i+1, opt)
	}
	for {
		line, ok := u.readLine(">")
		if !ok || line == "" {
			return -1
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1
		}
		u.printf("enter a number between 1 and %d", len(options))
	}
}
