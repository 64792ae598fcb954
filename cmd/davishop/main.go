package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/norasector/davishop/pkg/davis"
	"github.com/norasector/davishop/pkg/hopsync"
	"github.com/norasector/davishop/pkg/hopsync/config"
	"github.com/norasector/davishop/pkg/hopsync/device/file"
	"github.com/norasector/davishop/pkg/hopsync/device/sim"
	"github.com/norasector/davishop/pkg/hopsync/output"
	"github.com/norasector/davishop/pkg/hopsync/status"
	"github.com/norasector/davishop/pkg/util"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	configFile := flag.String("config", "davishop.yaml", "YAML config file")
	debug := flag.Bool("debug", false, "enable debug logging")

	flag.Parse()
	if *debug {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}

	opts, err := config.Load(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("error loading config file")
	}

	band, err := davis.ParseBand(opts.Band)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid band")
	}

	if opts.PlaybackLocation != "" {
		opts.Device = "file"
	}

	clock := sim.NewClock(0)
	var radio *sim.Radio

	switch opts.Device {
	case "file":
		log.Info().Str("device", "file").Str("path", opts.PlaybackLocation).Msg("initializing device...")
		radio, err = file.NewFileDevice(opts.PlaybackLocation, clock, band)
		if err != nil {
			log.Fatal().Str("device", "file").Err(err).Msg("failed to init file reader")
		}
	default:
		// Without hardware every configured station is simulated.
		log.Info().Str("device", "sim").Msg("initializing device...")
		radio = sim.New(clock, band)
		for idx, st := range opts.Stations {
			repeater, err := st.RepeaterID()
			if err != nil {
				log.Fatal().Uint8("station_id", st.ID).Err(err).Msg("invalid repeater")
			}
			radio.AddTransmitter(&sim.Transmitter{
				ID:       st.ID,
				Repeater: repeater,
				Channel:  idx % band.Channels(),
				Offset:   uint32(idx+1) * 250000,
				RSSI:     -65 - 5*idx,
			})
		}
		radio.Realtime(true)
	}

	var influxWriteAPI api.WriteAPI = &util.MockWriteAPI{}
	if opts.InfluxDB.Host != "" {
		client := influxdb2.NewClient(opts.InfluxDB.Host, opts.InfluxDB.Token)
		defer client.Close()
		influxWriteAPI = client.WriteAPI(opts.InfluxDB.Organization, opts.InfluxDB.Bucket)
	}

	var outputs []hopsync.Output
	if opts.PrintRecords {
		outputs = append(outputs, output.NewSimpleOutput(os.Stdout, nil))
	}
	if len(opts.OutputDestinations) > 0 {
		outputs = append(outputs, output.NewRecordUDPOutput(opts.OutputDestinations, influxWriteAPI))
	}

	// The status server reads from the engine, which needs its outputs up
	// front, so it is attached through a forwarding source.
	source := &engineSource{}
	if opts.StatusServer.Port != 0 {
		statusServer, err := status.NewServer(opts.StatusServer.Port, source)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create status server")
		}
		outputs = append(outputs, statusServer)
	}

	engine, err := hopsync.NewEngine(radio,
		hopsync.Options{
			Band:          band,
			Stations:      opts.Stations,
			QueueSize:     opts.QueueSize,
			PollInterval:  opts.PollInterval,
			StatsInterval: opts.StatsInterval,
			Timing:        hopsync.TimingFromConfig(opts.Timing),
			Outputs:       outputs,
		},
		hopsync.WithInfluxDB(influxWriteAPI),
		hopsync.WithClock(clock),
		hopsync.WithLogger(log.Logger))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create receiver")
	}
	source.Engine = engine

	eg, ctx := errgroup.WithContext(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	eg.Go(func() error {

		select {
		case <-sigChan:
		case <-ctx.Done():
		}

		return engine.Stop()
	})

	eg.Go(func() error {
		return engine.Start(ctx)
	})

	if err := eg.Wait(); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("exited program")
	}
}

type engineSource struct {
	*hopsync.Engine
}
