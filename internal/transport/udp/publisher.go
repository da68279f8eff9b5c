// SPDX-License-Identifier: MIT
package udp

import (
	"context"
	"sync"
	"time"

	applog "github.com/Kitkacy/PunchyAudio/internal/log"
	"github.com/Kitkacy/PunchyAudio/internal/transport"
	"github.com/rotisserie/eris"
)

// PacketSender is the datagram side of a Publisher; *Sender implements it.
type PacketSender interface {
	Send(data []byte) error
}

// Publisher periodically reads the latest bars, packs them into the binary
// packet format (see transport.AppendPacket) and sends them. Ticks where no
// new frame was published send nothing.
type Publisher struct {
	sender   PacketSender
	source   transport.Reader
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	lastSeq uint64
	sent    uint64

	// Reused between ticks.
	bars   []float64
	packet []byte
}

// NewPublisher creates a publisher for barCount bars. If the provided
// interval is invalid (<= 0), it defaults to 33ms (~30Hz).
func NewPublisher(interval time.Duration, sender PacketSender, source transport.Reader, barCount int) (*Publisher, error) {
	if sender == nil {
		return nil, eris.New("udp publisher: sender cannot be nil")
	}
	if source == nil {
		return nil, eris.New("udp publisher: source cannot be nil")
	}

	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	applog.Infof("UDPPublisher: Initializing (Interval: %s, Bars: %d)", interval, barCount)

	return &Publisher{
		sender:   sender,
		source:   source,
		interval: interval,
		bars:     make([]float64, 0, barCount),
		packet:   make([]byte, 0, transport.PacketSize(barCount)),
	}, nil
}

// Start launches the ticker goroutine. Calling Start while running is a
// no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Local copies so the goroutine never reads p.ticker/p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publishLatest()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. It is safe to call
// more than once.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		applog.Debugf("UDPPublisher: Stop called but not running.")
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("UDPPublisher: Publisher stopped after %d packets.", p.Sent())
	return nil
}

// Run starts the publisher, blocks until ctx is cancelled, then stops it.
func (p *Publisher) Run(ctx context.Context) error {
	p.Start()
	<-ctx.Done()
	return p.Stop()
}

// publishLatest sends one packet if a newer frame is available and reports
// whether it did.
func (p *Publisher) publishLatest() bool {
	snap, ok := p.source.LoadInto(p.bars)
	if !ok {
		return false
	}
	p.bars = snap.Bars
	if snap.Sequence == p.lastSeq {
		return false
	}
	p.lastSeq = snap.Sequence

	packet, err := transport.AppendPacket(p.packet[:0], snap)
	if err != nil {
		applog.Errorf("UDPPublisher: Error packing frame %d: %v", snap.Sequence, err)
		return false
	}
	p.packet = packet

	if err := p.sender.Send(packet); err != nil {
		applog.Errorf("UDPPublisher: %v", err)
		return false
	}

	p.mu.Lock()
	p.sent++
	p.mu.Unlock()

	// Checked here so the arguments are not boxed on every tick.
	if applog.GetLevel() <= applog.LevelDebug {
		applog.Debugf("UDPPublisher: Sent frame %d (%d bytes)", snap.Sequence, len(packet))
	}
	return true
}

// Sent returns the number of packets sent so far.
func (p *Publisher) Sent() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent
}

// Close implements io.Closer by stopping the publisher.
func (p *Publisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*Publisher)(nil)
