// Command elga is the single entry point of §6: one binary, five
// subcommands, selecting which participant the process hosts.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"elga/internal/agent"
	"elga/internal/algorithm"
	"elga/internal/chatterbox"
	"elga/internal/client"
	"elga/internal/config"
	"elga/internal/directory"
	"elga/internal/directorymaster"
	"elga/internal/logging"
	"elga/internal/procerrors"
	"elga/internal/streamer"
	"elga/internal/wireproto"
)

const usage = `usage: elga [-h] [-v] -d <dir-master-ip> [-B <local-base>] [-P <num-cores>] <command> [args...]

commands:
  directory-master
  directory <ip>
  agent <ip>
  streamer <file|generator|network> [args...]
  client <query|query_vertex|workload> [args...]
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		if ae, ok := err.(*procerrors.ArgError); ok {
			fmt.Fprintln(os.Stderr, ae.Error())
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := config.Defaults()
	fs := flag.NewFlagSet("elga", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	help := fs.Bool("h", false, "show usage")
	verbose := fs.Bool("v", false, "verbose logging")
	_ = verbose
	configPath := config.RegisterFlags(fs, &cfg)

	if err := fs.Parse(args); err != nil {
		return procerrors.Argf("%v", err)
	}
	if *help {
		fmt.Fprint(os.Stdout, usage)
		return nil
	}

	if *configPath != "" {
		if err := config.LoadJSONFile(&cfg, *configPath); err != nil {
			return procerrors.Argf("%v", err)
		}
	}
	config.ApplyEnv(&cfg)
	// parse again so explicitly passed flags win over env and the file
	if err := fs.Parse(args); err != nil {
		return procerrors.Argf("%v", err)
	}
	bSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "B" {
			bSet = true
		}
	})
	if !bSet {
		if id, ok := config.HostLocalID(); ok {
			cfg.LocalBase = id
		}
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return procerrors.Argf("missing command")
	}
	command, rest := rest[0], rest[1:]

	if cfg.DirMasterIP == "" && command != "directory-master" {
		return procerrors.Argf("-d <dir-master-ip> is required")
	}
	var dirMasterIP uint32
	if cfg.DirMasterIP != "" {
		ip, err := wireproto.ParseIPv4(cfg.DirMasterIP)
		if err != nil {
			return procerrors.Argf("%v", err)
		}
		dirMasterIP = ip
	}
	masterEndpoint := wireproto.Endpoint{IPv4: dirMasterIP, Local: 0}

	switch command {
	case "directory-master":
		return runDirectoryMaster(cfg, masterEndpoint)
	case "directory":
		return runDirectory(cfg, masterEndpoint, rest)
	case "agent":
		return runAgent(cfg, masterEndpoint, rest)
	case "streamer":
		return runStreamer(cfg, masterEndpoint, rest)
	case "client":
		return runClient(cfg, masterEndpoint, rest)
	default:
		return procerrors.Argf("unknown command %q", command)
	}
}

func selfEndpoint(ipLiteral string, local int) (wireproto.Endpoint, error) {
	ip, err := wireproto.ParseIPv4(ipLiteral)
	if err != nil {
		return wireproto.Endpoint{}, procerrors.Argf("%v", err)
	}
	return wireproto.Endpoint{IPv4: ip, Local: uint16(local)}, nil
}

func newChatterbox(self wireproto.Endpoint, layout wireproto.PortLayout, lruLimit int) (chatterbox.Transport, *chatterbox.Chatterbox) {
	transport := chatterbox.NewDefault()
	reply := wireproto.RemoteAddr(self.IPv4, self.Local, wireproto.Request, layout)
	pub := wireproto.RemoteAddr(self.IPv4, self.Local, wireproto.Publish, layout)
	pull := wireproto.RemoteAddr(self.IPv4, self.Local, wireproto.Pull, layout)
	cb := chatterbox.New(transport, reply, pub, pull, lruLimit)
	return transport, cb
}

func waitForSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
}

func runDirectoryMaster(cfg config.Config, masterEndpoint wireproto.Endpoint) error {
	logger := logging.New("directory-master", cfg.SaveDir)
	layout := cfg.PortLayout()
	_, cb := newChatterbox(masterEndpoint, layout, cfg.LRULimit)

	m := directorymaster.New(cb, logger)
	if err := m.Serve(); err != nil {
		return err
	}
	logger.Printf("directory-master listening on %+v", masterEndpoint)
	waitForSignal()
	return nil
}

func runDirectory(cfg config.Config, masterEndpoint wireproto.Endpoint, rest []string) error {
	if len(rest) < 1 {
		return procerrors.Argf("directory: missing <ip>")
	}
	self, err := selfEndpoint(rest[0], cfg.LocalBase)
	if err != nil {
		return err
	}
	logger := logging.New(fmt.Sprintf("directory[%d]", self.Local), cfg.SaveDir)
	layout := cfg.PortLayout()
	_, cb := newChatterbox(self, layout, cfg.LRULimit)

	dcfg := directory.Config{
		HeartbeatInterval:      time.Duration(cfg.HeartbeatUS) * time.Microsecond,
		SketchWidth:            cfg.SketchWidth,
		SketchDepth:            cfg.SketchDepth,
		AutoscaleLowWatermark:  cfg.AutoscaleLowWatermark,
		AutoscaleHighWatermark: cfg.AutoscaleHighWatermark,
		AutoscaleEnabled:       cfg.AutoscaleEnabled,
	}
	d := directory.New(self, cb, masterEndpoint, layout, dcfg, logger)
	if err := d.Start(); err != nil {
		return err
	}
	logger.Printf("directory %+v joined master %+v", self, masterEndpoint)
	waitForSignal()
	d.Stop()
	return nil
}

func runAgent(cfg config.Config, masterEndpoint wireproto.Endpoint, rest []string) error {
	if len(rest) < 1 {
		return procerrors.Argf("agent: missing <ip>")
	}
	self, err := selfEndpoint(rest[0], cfg.LocalBase)
	if err != nil {
		return err
	}
	algo, ok := algorithm.ByName(string(cfg.Algo))
	if !ok {
		return procerrors.Argf("agent: unknown algorithm %q", cfg.Algo)
	}
	logger := logging.New(fmt.Sprintf("agent[%d]", self.Local), cfg.SaveDir)
	layout := cfg.PortLayout()
	transport, cb := newChatterbox(self, layout, cfg.LRULimit)

	// The directory's own endpoint is discovered via the directory-master
	// at (master.IPv4, local 0) the same way every directory registers
	// itself (§4.4/§4.5); an agent learns the directory it rendezvouses
	// through from the same GET_DIRECTORY call a directory would use to
	// find peers.
	dirEndpoint, err := discoverDirectory(transport, masterEndpoint, layout, cfg.LRULimit)
	if err != nil {
		return err
	}

	a := agent.New(self, transport, cb, dirEndpoint, cfg, algo, logger)
	if err := a.Start(); err != nil {
		return err
	}
	logger.Printf("agent %+v joined directory %+v", self, dirEndpoint)
	waitForSignal()
	a.Stop()
	return nil
}

// discoverDirectory asks the directory master for one live directory
// endpoint to rendezvous through (GET_DIRECTORY, §4.4).
func discoverDirectory(transport chatterbox.Transport, masterEndpoint wireproto.Endpoint, layout wireproto.PortLayout, lruLimit int) (wireproto.Endpoint, error) {
	scratch := chatterbox.New(transport, wireproto.LocalAddr(0, wireproto.Request), wireproto.LocalAddr(0, wireproto.Publish), wireproto.LocalAddr(0, wireproto.Pull), lruLimit)
	defer scratch.Close()

	masterReplyAddr := wireproto.RemoteAddr(masterEndpoint.IPv4, masterEndpoint.Local, wireproto.Request, layout)
	resp, err := scratch.Request(masterReplyAddr, wireproto.Message{Kind: wireproto.KindGetDirectory}.Pack())
	if err != nil {
		return wireproto.Endpoint{}, fmt.Errorf("GET_DIRECTORY: %w", err)
	}
	serial, ok, err := wireproto.UnpackOptionalSerial(wireproto.NewReader(resp))
	if err != nil {
		return wireproto.Endpoint{}, err
	}
	if !ok {
		return wireproto.Endpoint{}, procerrors.Protof("no directory registered with master %+v", masterEndpoint)
	}
	return wireproto.EndpointFromSerial(serial), nil
}

func runStreamer(cfg config.Config, masterEndpoint wireproto.Endpoint, rest []string) error {
	if len(rest) < 1 {
		return procerrors.Argf("streamer: missing source (file|generator|network)")
	}
	source, rest := rest[0], rest[1:]

	self, err := selfEndpoint("127.0.0.1", cfg.LocalBase)
	if err != nil {
		return err
	}
	logger := logging.New(fmt.Sprintf("streamer[%d]", self.Local), cfg.SaveDir)
	layout := cfg.PortLayout()
	transport, cb := newChatterbox(self, layout, cfg.LRULimit)
	dirEndpoint, err := discoverDirectory(transport, masterEndpoint, layout, cfg.LRULimit)
	if err != nil {
		return err
	}

	scfg := streamer.Config{BatchSize: 256}
	s := streamer.New(self, transport, cb, dirEndpoint, scfg, logger)
	if err := s.Start(); err != nil {
		return err
	}

	switch source {
	case "file":
		if len(rest) < 1 {
			return procerrors.Argf("streamer file: missing path")
		}
		f, err := os.Open(rest[0])
		if err != nil {
			return err
		}
		defer f.Close()
		return s.RunFile(f)
	case "network":
		if err := s.RunNetwork(); err != nil {
			return err
		}
		waitForSignal()
		return nil
	case "generator":
		if len(rest) < 3 {
			return procerrors.Argf("streamer generator: need <range-start> <range-size> <num-edges>")
		}
		start, err1 := strconv.ParseUint(rest[0], 10, 64)
		size, err2 := strconv.ParseUint(rest[1], 10, 64)
		n, err3 := strconv.Atoi(rest[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return procerrors.Argf("streamer generator: malformed arguments")
		}
		s.RunGenerator(streamer.GeneratorConfig{RangeStart: start, RangeSize: size, NumEdges: n}, pseudoRand)
		return nil
	default:
		return procerrors.Argf("streamer: unknown source %q", source)
	}
}

// pseudoRand is a minimal linear-congruential source, used only so the
// generator mode doesn't reach for math/rand's global lock across a tight
// edge-emission loop; good enough for synthetic load, not for anything
// security sensitive.
var lcgState uint64 = 0x2545F4914F6CDD1D

func pseudoRand(n int) int {
	lcgState = lcgState*6364136223846793005 + 1442695040888963407
	return int((lcgState >> 33) % uint64(n))
}

func runClient(cfg config.Config, masterEndpoint wireproto.Endpoint, rest []string) error {
	if len(rest) < 1 {
		return procerrors.Argf("client: missing subcommand (query|query_vertex|workload)")
	}
	sub, rest := rest[0], rest[1:]

	self, err := selfEndpoint("127.0.0.1", cfg.LocalBase)
	if err != nil {
		return err
	}
	logger := logging.New(fmt.Sprintf("client[%d]", self.Local), cfg.SaveDir)
	layout := cfg.PortLayout()
	transport, cb := newChatterbox(self, layout, cfg.LRULimit)
	dirEndpoint, err := discoverDirectory(transport, masterEndpoint, layout, cfg.LRULimit)
	if err != nil {
		return err
	}

	c := client.New(self, transport, cb, dirEndpoint, logger)

	switch sub {
	case "query":
		if len(rest) < 1 {
			return procerrors.Argf("client query: missing directive (start|save|dump|reset|chkt)")
		}
		kind, ok := directiveKinds[strings.ToLower(rest[0])]
		if !ok {
			return procerrors.Argf("client query: unknown directive %q", rest[0])
		}
		return c.Query(kind, nil)
	case "query_vertex":
		if len(rest) < 1 {
			return procerrors.Argf("client query_vertex: missing vertex id")
		}
		v, err := strconv.ParseUint(rest[0], 10, 64)
		if err != nil {
			return procerrors.Argf("client query_vertex: %v", err)
		}
		if err := c.LearnAgents(defaultLearnTimeout); err != nil {
			return err
		}
		resp, err := c.QueryVertex(v)
		if err != nil {
			return err
		}
		fmt.Printf("%v\n", resp)
		return nil
	case "workload":
		if len(rest) < 2 {
			return procerrors.Argf("client workload: need <vertex-range-size> <num-queries>")
		}
		rangeSize, err1 := strconv.ParseUint(rest[0], 10, 64)
		n, err2 := strconv.Atoi(rest[1])
		if err1 != nil || err2 != nil {
			return procerrors.Argf("client workload: malformed arguments")
		}
		if err := c.LearnAgents(defaultLearnTimeout); err != nil {
			return err
		}
		results := c.RunWorkload(client.WorkloadConfig{
			VertexRangeSize: rangeSize,
			NumQueries:      n,
			TopK:            10,
		})
		for _, r := range results.Results() {
			fmt.Printf("vertex=%d score=%g\n", r.Vertex, r.Score)
		}
		return nil
	default:
		return procerrors.Argf("client: unknown subcommand %q", sub)
	}
}

const defaultLearnTimeout = 5 * time.Second

var directiveKinds = map[string]wireproto.Kind{
	"start": wireproto.KindStart,
	"save":  wireproto.KindSave,
	"dump":  wireproto.KindDump,
	"reset": wireproto.KindReset,
	"chkt":  wireproto.KindChkT,
}
