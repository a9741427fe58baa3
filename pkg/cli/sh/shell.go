package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/armlink/pkg/config"
	"github.com/robotalks/armlink/pkg/l1"
	env "github.com/robotalks/armlink/pkg/l1/env/connector"
	"github.com/robotalks/armlink/pkg/l1/msgs"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	Timeout     time.Duration

	Shell   *ishell.Shell
	Config  *env.Config
	Session Session
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "

	// DefaultTimeout bounds a command sent from the shell.
	DefaultTimeout = 5 * time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&OpenCmd,
		&DisconnectCmd,
		&SendCmd,
		&JointCmd,
		&ProfileCmd,
		&StatusCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     DefaultTimeout,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a session.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Session == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// FormatInfo prints ControllerInfo into friendly string for display.
func FormatInfo(info l1.ControllerInfo) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%s", info.Ref.Name())
	if info.Meta.Description != "" {
		fmt.Fprintf(&w, ": %s", info.Meta.Description)
	}
	if info.Meta.Profile != "" {
		fmt.Fprintf(&w, " [%s]", info.Meta.Profile)
	}
	return w.String()
}

// FormatResult prints a VisionResult as "N: v1,v2 (latency)" or the error.
func FormatResult(res *msgs.VisionResult) string {
	if !res.OK() {
		return "ERROR " + res.Error
	}
	vals := make([]string, len(res.Values))
	for n, v := range res.Values {
		vals[n] = strconv.Itoa(int(v))
	}
	return fmt.Sprintf("%d: %s (%s)", len(vals), strings.Join(vals, ","), res.Latency().Round(time.Microsecond))
}

func (s *Shell) println(c *ishell.Context, v interface{}, text string) error {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		c.Println(string(out))
		return nil
	}
	c.Println(text)
	return nil
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// DiscoverControllers discovers controllers.
func (s *Shell) DiscoverControllers(filter func(l1.ControllerInfo) bool) ([]l1.ControllerInfo, error) {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return nil, err
	}
	infoList, err := connector.Discover(context.TODO())
	if err != nil {
		return nil, err
	}
	if filter != nil {
		items := make([]l1.ControllerInfo, 0, len(infoList))
		for _, info := range infoList {
			if filter(info) {
				items = append(items, info)
			}
		}
		infoList = items
	}
	return infoList, nil
}

// SelectController discovers controllers and asks for a choice.
func (s *Shell) SelectController(filter func(l1.ControllerInfo) bool) (*l1.ControllerInfo, error) {
	infoList, err := s.DiscoverControllers(filter)
	if err != nil {
		return nil, err
	}
	if len(infoList) == 0 {
		return nil, nil
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive {
			return nil, fmt.Errorf("more than 1 controllers discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one to connect?")
	}
	return &infoList[index], nil
}

// Connect connects controller with ref.
func (s *Shell) Connect(ref l1.ControllerRef) error {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	remote, err := connector.Connect(ctx, ref)
	if err != nil {
		return err
	}
	s.use(&remoteSession{Remote: remote})
	return nil
}

// Open opens a vision port with the configured profile.
func (s *Shell) Open(addr string) error {
	profile, err := config.Load(s.Config.ProfileFile, s.Config.Profile)
	if err != nil {
		return err
	}
	session, err := OpenLocal(addr, profile)
	if err != nil {
		return err
	}
	s.use(session)
	return nil
}

func (s *Shell) use(session Session) {
	s.Disconnect()
	s.Session = session
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", session.Name()))
}

// Disconnect closes the current session.
func (s *Shell) Disconnect() {
	if s.Session != nil {
		s.Session.Close()
		s.Session = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect {
		switch {
		case s.Config.Port != "":
			if err := s.Open(s.Config.Port); err != nil {
				log.Fatalf("open %q failed: %v", s.Config.Port, err)
			}
		case s.Config.Ref.IsValid():
			if s.Interactive {
				s.Shell.Printf("Connecting %s ...\n", s.Config.Ref.Name())
			}
			if err := s.Connect(s.Config.Ref); err != nil {
				log.Fatalf("connect %q failed: %v", s.Config.Ref.Name(), err)
			}
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// DiscoverCmd discovers controllers.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "list controllers on the broker",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			infoList, err := s.DiscoverControllers(nil)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(infoList) == 0 {
					// in case infoList is nil, make it empty slice.
					infoList = []l1.ControllerInfo{}
				}
				s.println(c, infoList, "")
				return
			}
			if len(infoList) == 0 {
				c.Println("No controllers found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects a controller.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "TYPE ID",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var ref l1.ControllerRef
			if len(c.Args) >= 2 {
				ref.Type, ref.ID = c.Args[0], c.Args[1]
			} else {
				var filter func(l1.ControllerInfo) bool
				if len(c.Args) == 1 {
					filter = func(info l1.ControllerInfo) bool {
						return info.Ref.Type == c.Args[0]
					}
				}
				info, err := s.SelectController(filter)
				if err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(fmt.Errorf("no controller discovered"))
					return
				}
				ref = info.Ref
			}
			if err := s.Connect(ref); err != nil {
				c.Err(err)
			}
		},
	}

	// OpenCmd opens a vision port locally.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "PORT, e.g. /dev/ttyUSB0 or ws://bridge:8080/port",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("port expected"))
				return
			}
			if err := ShellFrom(c).Open(c.Args[0]); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd closes the current session.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// SendCmd sends a command to the vision coprocessor.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"req", "s"},
		Help:    "COMMAND",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("command expected"))
				return
			}
			s := ShellFrom(c)
			ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
			defer cancel()
			res, err := s.Session.Request(ctx, strings.Join(c.Args, " "))
			if err != nil {
				c.Err(err)
				return
			}
			if err := s.println(c, res, FormatResult(res)); err != nil {
				c.Err(err)
			}
		}),
	}

	// JointCmd moves a servo joint.
	JointCmd = ishell.Cmd{
		Name:    "joint",
		Aliases: []string{"j"},
		Help:    "JOINT ANGLE [OVERSHOOT], JOINT is one of b s e w g",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 || len(c.Args) > 3 {
				c.Err(fmt.Errorf("JOINT ANGLE [OVERSHOOT] expected"))
				return
			}
			nums := make([]int, 2)
			for n, arg := range c.Args[1:] {
				val, err := strconv.Atoi(arg)
				if err != nil {
					c.Err(fmt.Errorf("invalid number %q", arg))
					return
				}
				nums[n] = val
			}
			s := ShellFrom(c)
			ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
			defer cancel()
			if err := s.Session.MoveJoint(ctx, c.Args[0], nums[0], nums[1]); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// ProfileCmd prints the profile of a local session.
	ProfileCmd = ishell.Cmd{
		Name: "profile",
		Help: "print the vision profile of the opened port",
		Func: MustBeConnected(func(c *ishell.Context) {
			local, ok := ShellFrom(c).Session.(*LocalSession)
			if !ok {
				c.Err(fmt.Errorf("profile is only known for an opened port"))
				return
			}
			c.Print(string(local.Profile.Encode()))
		}),
	}

	// StatusCmd prints the current session.
	StatusCmd = ishell.Cmd{
		Name: "status",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if s.Session == nil {
				c.Println("not connected")
				return
			}
			kind := "remote"
			if _, ok := s.Session.(*LocalSession); ok {
				kind = "local"
			}
			c.Printf("%s %s\n", kind, s.Session.Name())
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
