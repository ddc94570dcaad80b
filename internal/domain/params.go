package domain

// Negotiation parameters exchanged with clients. These mirror what the media
// engine returns for a freshly created transport; the engine owns the actual
// negotiated resource, the handles only reference it.

type ICEParameters struct {
	UsernameFragment string `json:"usernameFragment"`
	Password         string `json:"password"`
	ICELite          bool   `json:"iceLite"`
}

type ICECandidate struct {
	Foundation string `json:"foundation"`
	Priority   uint32 `json:"priority"`
	Address    string `json:"address"`
	Protocol   string `json:"protocol"`
	Port       uint16 `json:"port"`
	Type       string `json:"type"`
}

type DTLSFingerprint struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

type DTLSParameters struct {
	Role         string            `json:"role"`
	Fingerprints []DTLSFingerprint `json:"fingerprints"`
}

type RTPCodecCapability struct {
	MimeType    string `json:"mimeType"`
	ClockRate   uint32 `json:"clockRate"`
	Channels    uint16 `json:"channels,omitempty"`
	SDPFmtpLine string `json:"sdpFmtpLine,omitempty"`
}

// RTPCapabilities is the engine's static capability descriptor, also used by
// clients to announce what they can receive.
type RTPCapabilities struct {
	Codecs []RTPCodecCapability `json:"codecs"`
}

// RTPParameters describe a single produced or consumed stream.
type RTPParameters struct {
	MID    string               `json:"mid,omitempty"`
	Codecs []RTPCodecCapability `json:"codecs"`
	SSRC   uint32               `json:"ssrc,omitempty"`
}

// TransportOffer is everything a client needs to connect to a new transport.
type TransportOffer struct {
	ID             TransportID    `json:"id"`
	ICEParameters  ICEParameters  `json:"iceParameters"`
	ICECandidates  []ICECandidate `json:"iceCandidates"`
	DTLSParameters DTLSParameters `json:"dtlsParameters"`
}
