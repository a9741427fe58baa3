// Package config decodes deployment profiles from HCL.
//
//	profile "standard" {
//	  timeout       = "3s"
//	  max_values    = 20
//	  poll_command  = "SCAN"
//	  poll_interval = "200ms"
//
//	  steppers {
//	    count      = 5
//	    step_angle = 1.8
//	  }
//	}
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"

	"github.com/robotalks/armlink/pkg/arm"
	"github.com/robotalks/armlink/pkg/l0/vision"
)

// File is a profiles file.
type File struct {
	Profiles []*Profile `hcl:"profile,block"`
}

// Profile configures the vision link and the arm of one deployment.
// Zero fields take the link defaults.
type Profile struct {
	Name          string          `hcl:"name,label"`
	Timeout       string          `hcl:"timeout,optional"`
	BufferSize    int             `hcl:"buffer_size,optional"`
	MaxValues     int             `hcl:"max_values,optional"`
	ErrorSentinel string          `hcl:"error_sentinel,optional"`
	Delimiter     string          `hcl:"delimiter,optional"`
	Separator     string          `hcl:"separator,optional"`
	PollCommand   string          `hcl:"poll_command,optional"`
	PollInterval  string          `hcl:"poll_interval,optional"`
	UpdateEvery   string          `hcl:"update_interval,optional"`
	Trace         bool            `hcl:"trace,optional"`
	Steppers      *SteppersSchema `hcl:"steppers,block"`
}

// SteppersSchema describes the stepper bank.
type SteppersSchema struct {
	Count     int     `hcl:"count,optional"`
	StepAngle float64 `hcl:"step_angle,optional"`
}

// Builtin profile names.
const (
	ProfileStandard = "standard"
	ProfileExtended = "extended"
)

// Builtin is the profiles file used when none is given.
const Builtin = `
profile "standard" {
  timeout       = "3s"
  buffer_size   = 256
  max_values    = 20
  poll_command  = "SCAN"
  poll_interval = "200ms"

  steppers {
    count      = 5
    step_angle = 1.8
  }
}

profile "extended" {
  timeout       = "3s"
  buffer_size   = 256
  max_values    = 30
  poll_command  = "SCAN"
  poll_interval = "200ms"

  steppers {
    count      = 5
    step_angle = 1.8
  }
}
`

var (
	// ErrProfileNotFound is returned when no profile has the name.
	ErrProfileNotFound = errors.New("profile not found")
)

// Decode parses a profiles file. filename is only used in diagnostics.
func Decode(data []byte, filename string) (*File, error) {
	file, diag := hclsyntax.ParseConfig(data, filename, hcl.Pos{Line: 1, Column: 1})
	if diag.HasErrors() {
		return nil, diag.Errs()[0]
	}
	f := new(File)
	if diag = gohcl.DecodeBody(file.Body, nil, f); diag.HasErrors() {
		return nil, diag.Errs()[0]
	}
	return f, nil
}

// ReadFile reads a profiles file.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	return Decode(data, path)
}

// Profile finds a profile by name.
func (f *File) Profile(name string) (*Profile, error) {
	for _, p := range f.Profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
}

// Load finds name in the file at path, or in Builtin when path is empty.
func Load(path, name string) (*Profile, error) {
	var f *File
	var err error
	if path == "" {
		f, err = Decode([]byte(Builtin), "builtin")
	} else {
		f, err = ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return f.Profile(name)
}

// VisionConfig converts to a validated vision.Config.
func (p *Profile) VisionConfig() (conf vision.Config, err error) {
	if conf.Timeout, err = parseDuration("timeout", p.Timeout); err != nil {
		return
	}
	if conf.PollInterval, err = parseDuration("update_interval", p.UpdateEvery); err != nil {
		return
	}
	if _, err = p.PollEvery(); err != nil {
		return
	}
	if conf.Delimiter, err = parseByte("delimiter", p.Delimiter); err != nil {
		return
	}
	if conf.Separator, err = parseByte("separator", p.Separator); err != nil {
		return
	}
	conf.BufferSize = p.BufferSize
	conf.MaxValues = p.MaxValues
	conf.ErrorSentinel = p.ErrorSentinel
	conf.Trace = p.Trace
	if err = conf.Validate(); err != nil {
		return
	}
	return conf.WithDefaults(), nil
}

// PollEvery is the cadence of PollCommand in the controller loop.
func (p *Profile) PollEvery() (time.Duration, error) {
	return parseDuration("poll_interval", p.PollInterval)
}

// StepperConfig converts the steppers block.
func (p *Profile) StepperConfig() arm.StepperConfig {
	var conf arm.StepperConfig
	if p.Steppers != nil {
		conf.Count, conf.StepAngle = p.Steppers.Count, p.Steppers.StepAngle
	}
	return conf.WithDefaults()
}

// Encode writes the profile as an HCL block.
func (p *Profile) Encode() []byte {
	f := hclwrite.NewEmptyFile()
	f.Body().AppendBlock(gohcl.EncodeAsBlock(p, "profile"))
	return f.Bytes()
}

func parseDuration(name, val string) (time.Duration, error) {
	if val == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, val, err)
	}
	return d, nil
}

// parseByte accepts one character or a Go escape like "\n" or "\x1e".
func parseByte(name, val string) (byte, error) {
	if val == "" {
		return 0, nil
	}
	if len(val) == 1 {
		return val[0], nil
	}
	s, err := strconv.Unquote(`"` + val + `"`)
	if err != nil || len(s) != 1 {
		return 0, fmt.Errorf("invalid %s %q: single character expected", name, val)
	}
	return s[0], nil
}
