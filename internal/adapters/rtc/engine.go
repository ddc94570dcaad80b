// Package rtc implements the media engine contract on top of pion's
// ORTC-style API: one ICE gatherer / ICE transport / DTLS transport triple
// per transport, an RTPReceiver per producer and an RTPSender per consumer.
package rtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/relabs/matchcast/internal/core"
	"github.com/relabs/matchcast/internal/domain"
)

type Engine struct {
	api  *webrtc.API
	caps domain.RTPCapabilities
	opts webrtc.ICEGatherOptions

	mu         sync.Mutex
	ready      bool
	transports map[domain.TransportID]*engineTransport
	producers  map[domain.ProducerID]*engineProducer
	consumers  map[domain.ConsumerID]*engineConsumer
}

type engineTransport struct {
	gatherer *webrtc.ICEGatherer
	ice      *webrtc.ICETransport
	dtls     *webrtc.DTLSTransport
	children int
	closed   *closeHook
}

type engineProducer struct {
	transport domain.TransportID
	kind      domain.MediaKind
	receiver  *webrtc.RTPReceiver
	closed    *closeHook
}

type engineConsumer struct {
	transport domain.TransportID
	sender    *webrtc.RTPSender
	closed    *closeHook
}

func NewEngine(stunServers []string) (*Engine, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	se := webrtc.SettingEngine{}
	// Clients initiate connectivity checks; connect only carries DTLS
	// parameters, mediasoup-style.
	se.SetLite(true)

	api := webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithSettingEngine(se))

	var servers []webrtc.ICEServer
	for _, u := range stunServers {
		servers = append(servers, webrtc.ICEServer{URLs: []string{u}})
	}

	e := &Engine{
		api:        api,
		caps:       defaultCapabilities(),
		opts:       webrtc.ICEGatherOptions{ICEServers: servers},
		ready:      true,
		transports: make(map[domain.TransportID]*engineTransport),
		producers:  make(map[domain.ProducerID]*engineProducer),
		consumers:  make(map[domain.ConsumerID]*engineConsumer),
	}
	log.Info().Str("module", "rtc").Int("stun_servers", len(servers)).Msg("media engine ready")
	return e, nil
}

func defaultCapabilities() domain.RTPCapabilities {
	return domain.RTPCapabilities{Codecs: []domain.RTPCodecCapability{
		{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2, SDPFmtpLine: "minptime=10;useinbandfec=1"},
		{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		{MimeType: webrtc.MimeTypeH264, ClockRate: 90000, SDPFmtpLine: "level-asymmetry-allowed=1;packetization-mode=1"},
	}}
}

func (e *Engine) Capabilities() (domain.RTPCapabilities, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return domain.RTPCapabilities{}, core.ErrEngineUninitialized
	}
	return e.caps, nil
}

func (e *Engine) CreateTransport(ctx context.Context) (*core.EngineTransport, error) {
	gatherer, err := e.api.NewICEGatherer(e.opts)
	if err != nil {
		return nil, fmt.Errorf("new gatherer: %w", err)
	}

	done := make(chan struct{})
	gatherer.OnLocalCandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			close(done)
		}
	})
	if err := gatherer.Gather(); err != nil {
		return nil, fmt.Errorf("gather: %w", err)
	}
	select {
	case <-done:
	case <-ctx.Done():
		_ = gatherer.Close()
		return nil, ctx.Err()
	}

	ice := e.api.NewICETransport(gatherer)
	dtls, err := e.api.NewDTLSTransport(ice, nil)
	if err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("new dtls transport: %w", err)
	}

	iceParams, err := gatherer.GetLocalParameters()
	if err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("local ice parameters: %w", err)
	}
	candidates, err := gatherer.GetLocalCandidates()
	if err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("local candidates: %w", err)
	}
	dtlsParams, err := dtls.GetLocalParameters()
	if err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("local dtls parameters: %w", err)
	}

	id := domain.TransportID(uuid.NewString())
	t := &engineTransport{gatherer: gatherer, ice: ice, dtls: dtls, closed: newCloseHook()}

	ice.OnConnectionStateChange(func(s webrtc.ICETransportState) {
		log.Debug().Str("module", "rtc").Str("transport", string(id)).Str("state", s.String()).Msg("ice state")
		if s == webrtc.ICETransportStateFailed || s == webrtc.ICETransportStateClosed {
			t.closed.fire()
		}
	})

	e.mu.Lock()
	e.transports[id] = t
	e.mu.Unlock()

	return &core.EngineTransport{
		TransportOffer: domain.TransportOffer{
			ID:             id,
			ICEParameters:  toICEParameters(iceParams),
			ICECandidates:  toICECandidates(candidates),
			DTLSParameters: toDTLSParameters(dtlsParams),
		},
		OnClose: t.closed.subscribe,
	}, nil
}

func (e *Engine) Connect(ctx context.Context, id domain.TransportID, dtls domain.DTLSParameters) error {
	t, err := e.transport(id)
	if err != nil {
		return err
	}
	// ICE runs in lite mode, so the remote side drives connectivity checks;
	// only the DTLS handshake is started here.
	if err := t.dtls.Start(fromDTLSParameters(dtls)); err != nil {
		return fmt.Errorf("dtls start: %w", err)
	}
	return nil
}

func (e *Engine) Produce(ctx context.Context, id domain.TransportID, kind domain.MediaKind, params domain.RTPParameters) (*core.EngineProducer, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown media kind %q", kind)
	}
	t, err := e.transport(id)
	if err != nil {
		return nil, err
	}

	receiver, err := e.api.NewRTPReceiver(codecTypeOf(kind), t.dtls)
	if err != nil {
		return nil, fmt.Errorf("new receiver: %w", err)
	}
	recv := webrtc.RTPReceiveParameters{Encodings: []webrtc.RTPDecodingParameters{{
		RTPCodingParameters: webrtc.RTPCodingParameters{SSRC: webrtc.SSRC(params.SSRC)},
	}}}
	if err := receiver.Receive(recv); err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}

	pid := domain.ProducerID(uuid.NewString())
	p := &engineProducer{transport: id, kind: kind, receiver: receiver, closed: newCloseHook()}

	e.mu.Lock()
	e.producers[pid] = p
	t.children++
	e.mu.Unlock()

	return &core.EngineProducer{ID: pid, OnClose: p.closed.subscribe}, nil
}

func (e *Engine) Consume(ctx context.Context, id domain.TransportID, producer domain.ProducerID, caps domain.RTPCapabilities) (*core.EngineConsumer, error) {
	t, err := e.transport(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	p, ok := e.producers[producer]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown producer %s", producer)
	}
	if !e.CanConsume(producer, caps) {
		return nil, core.ErrIncompatibleCapabilities
	}

	cid := domain.ConsumerID(uuid.NewString())
	codec, _ := codecFor(p.kind, caps)
	track, err := webrtc.NewTrackLocalStaticRTP(webrtc.RTPCodecCapability{
		MimeType:    codec.MimeType,
		ClockRate:   codec.ClockRate,
		Channels:    codec.Channels,
		SDPFmtpLine: codec.SDPFmtpLine,
	}, string(cid), "matchcast")
	if err != nil {
		return nil, fmt.Errorf("new local track: %w", err)
	}

	sender, err := e.api.NewRTPSender(track, t.dtls)
	if err != nil {
		return nil, fmt.Errorf("new sender: %w", err)
	}
	if err := sender.Send(sender.GetParameters()); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}

	cons := &engineConsumer{transport: id, sender: sender, closed: newCloseHook()}
	e.mu.Lock()
	e.consumers[cid] = cons
	t.children++
	e.mu.Unlock()

	return &core.EngineConsumer{
		ID:   cid,
		Kind: p.kind,
		RTPParameters: domain.RTPParameters{
			Codecs: []domain.RTPCodecCapability{codec},
			SSRC:   uint32(sender.GetParameters().Encodings[0].SSRC),
		},
		OnClose: cons.closed.subscribe,
	}, nil
}

// CanConsume reports whether the remote capabilities include a codec of the
// producer's media kind that the engine also supports.
func (e *Engine) CanConsume(producer domain.ProducerID, caps domain.RTPCapabilities) bool {
	e.mu.Lock()
	p, ok := e.producers[producer]
	e.mu.Unlock()
	if !ok {
		return false
	}
	_, ok = codecFor(p.kind, caps)
	return ok
}

// Close tears down the engine-side resource. Idempotent: an unknown id is a
// no-op. Closing a transport with live producers or consumers is an error;
// the coordinator cascades dependents first.
func (e *Engine) Close(ctx context.Context, id string) error {
	e.mu.Lock()
	if p, ok := e.producers[domain.ProducerID(id)]; ok {
		delete(e.producers, domain.ProducerID(id))
		if t, ok := e.transports[p.transport]; ok {
			t.children--
		}
		e.mu.Unlock()
		err := p.receiver.Stop()
		p.closed.fire()
		return err
	}
	if cons, ok := e.consumers[domain.ConsumerID(id)]; ok {
		delete(e.consumers, domain.ConsumerID(id))
		if t, ok := e.transports[cons.transport]; ok {
			t.children--
		}
		e.mu.Unlock()
		err := cons.sender.Stop()
		cons.closed.fire()
		return err
	}
	if t, ok := e.transports[domain.TransportID(id)]; ok {
		if t.children > 0 {
			e.mu.Unlock()
			return fmt.Errorf("transport %s has %d live children", id, t.children)
		}
		delete(e.transports, domain.TransportID(id))
		e.mu.Unlock()
		_ = t.dtls.Stop()
		_ = t.ice.Stop()
		err := t.gatherer.Close()
		t.closed.fire()
		return err
	}
	e.mu.Unlock()
	return nil
}

func (e *Engine) transport(id domain.TransportID) (*engineTransport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.transports[id]
	if !ok {
		return nil, fmt.Errorf("unknown transport %s", id)
	}
	return t, nil
}

func codecTypeOf(kind domain.MediaKind) webrtc.RTPCodecType {
	if kind == domain.MediaKindAudio {
		return webrtc.RTPCodecTypeAudio
	}
	return webrtc.RTPCodecTypeVideo
}

// codecFor picks the first capability of the right kind that the engine
// itself supports.
func codecFor(kind domain.MediaKind, caps domain.RTPCapabilities) (domain.RTPCodecCapability, bool) {
	supported := defaultCapabilities()
	for _, c := range caps.Codecs {
		if kindOfMime(c.MimeType) != kind {
			continue
		}
		for _, s := range supported.Codecs {
			if s.MimeType == c.MimeType && s.ClockRate == c.ClockRate {
				return c, true
			}
		}
	}
	return domain.RTPCodecCapability{}, false
}

func kindOfMime(mime string) domain.MediaKind {
	if len(mime) >= 5 && mime[:5] == "audio" {
		return domain.MediaKindAudio
	}
	return domain.MediaKindVideo
}
