/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package logfmt

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"github.com/sirupsen/logrus"
)

// Formatter implements logrus.Formatter, rendering entries as
//
//	Jan _2 15:04:05.000 [INFO] [component:server] message
//
// with terminal styling applied through termenv when the output
// profile supports it.
type Formatter struct {
	fieldsOrder     []string
	timestampFormat string
	hideKeys        bool
	noStyles        bool
	trimMessages    bool

	profile termenv.Profile
}

type FormatOption interface {
	apply(*Formatter)
}

type fmtopt func(*Formatter)

func (o fmtopt) apply(f *Formatter) {
	o(f)
}

func New(options ...FormatOption) *Formatter {
	formatter := &Formatter{
		timestampFormat: time.StampMilli,
		profile:         termenv.ColorProfile(),
	}

	for _, opt := range options {
		opt.apply(formatter)
	}

	return formatter
}

// WithFieldsOrder sets the field display order.
// default: fields sorted alphabetically
func WithFieldsOrder(fields ...string) FormatOption {
	return fmtopt(func(f *Formatter) {
		f.fieldsOrder = fields
	})
}

// WithTimestampFormat sets the timestamp format.
// default: time.StampMilli
func WithTimestampFormat(format string) FormatOption {
	return fmtopt(func(f *Formatter) {
		f.timestampFormat = format
	})
}

// HideKeys sets whether to show [fieldValue] instead of [fieldKey:fieldValue].
func HideKeys(state bool) FormatOption {
	return fmtopt(func(f *Formatter) {
		f.hideKeys = state
	})
}

// NoStyles disables terminal styling regardless of the output profile.
func NoStyles(state bool) FormatOption {
	return fmtopt(func(f *Formatter) {
		f.noStyles = state
	})
}

// TrimMessages sets whether entry messages are whitespace-trimmed.
func TrimMessages(state bool) FormatOption {
	return fmtopt(func(f *Formatter) {
		f.trimMessages = state
	})
}

var levelColors = map[logrus.Level]termenv.ANSIColor{
	logrus.TraceLevel: termenv.ANSIWhite,
	logrus.DebugLevel: termenv.ANSIBrightBlack,
	logrus.InfoLevel:  termenv.ANSICyan,
	logrus.WarnLevel:  termenv.ANSIYellow,
	logrus.ErrorLevel: termenv.ANSIRed,
	logrus.FatalLevel: termenv.ANSIRed,
	logrus.PanicLevel: termenv.ANSIRed,
}

func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(entry.Time.Format(f.timestampFormat))

	level := strings.ToUpper(entry.Level.String())
	buf.WriteString(" [")
	buf.WriteString(f.styled(level, levelColors[entry.Level]))
	buf.WriteString("]")

	for _, key := range f.orderedKeys(entry.Data) {
		buf.WriteString(" [")
		if !f.hideKeys {
			buf.WriteString(f.styled(key+":", termenv.ANSIBrightBlack))
		}
		buf.WriteString(fmt.Sprintf("%v", entry.Data[key]))
		buf.WriteString("]")
	}

	buf.WriteString(" ")
	if f.trimMessages {
		buf.WriteString(strings.TrimSpace(entry.Message))
	} else {
		buf.WriteString(entry.Message)
	}
	buf.WriteString("\n")

	return buf.Bytes(), nil
}

func (f *Formatter) styled(text string, color termenv.ANSIColor) string {
	if f.noStyles {
		return text
	}
	return termenv.String(text).Foreground(f.profile.Convert(color)).String()
}

// orderedKeys returns the configured fields first, in order, followed by
// any remaining fields sorted alphabetically.
func (f *Formatter) orderedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))

	seen := make(map[string]bool, len(f.fieldsOrder))
	for _, key := range f.fieldsOrder {
		if _, ok := data[key]; ok {
			keys = append(keys, key)
			seen[key] = true
		}
	}

	rest := make([]string, 0, len(data))
	for key := range data {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)

	return append(keys, rest...)
}
