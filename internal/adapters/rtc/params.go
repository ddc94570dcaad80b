package rtc

import (
	"github.com/pion/webrtc/v4"

	"github.com/relabs/matchcast/internal/domain"
)

// Mapping between pion's negotiation types and the wire-facing domain types.

func toICEParameters(p webrtc.ICEParameters) domain.ICEParameters {
	return domain.ICEParameters{
		UsernameFragment: p.UsernameFragment,
		Password:         p.Password,
		ICELite:          p.ICELite,
	}
}

func toICECandidates(cs []webrtc.ICECandidate) []domain.ICECandidate {
	out := make([]domain.ICECandidate, 0, len(cs))
	for _, c := range cs {
		out = append(out, domain.ICECandidate{
			Foundation: c.Foundation,
			Priority:   c.Priority,
			Address:    c.Address,
			Protocol:   c.Protocol.String(),
			Port:       c.Port,
			Type:       c.Typ.String(),
		})
	}
	return out
}

func toDTLSParameters(p webrtc.DTLSParameters) domain.DTLSParameters {
	fps := make([]domain.DTLSFingerprint, 0, len(p.Fingerprints))
	for _, f := range p.Fingerprints {
		fps = append(fps, domain.DTLSFingerprint{Algorithm: f.Algorithm, Value: f.Value})
	}
	return domain.DTLSParameters{Role: p.Role.String(), Fingerprints: fps}
}

func fromDTLSParameters(p domain.DTLSParameters) webrtc.DTLSParameters {
	fps := make([]webrtc.DTLSFingerprint, 0, len(p.Fingerprints))
	for _, f := range p.Fingerprints {
		fps = append(fps, webrtc.DTLSFingerprint{Algorithm: f.Algorithm, Value: f.Value})
	}
	return webrtc.DTLSParameters{Role: fromDTLSRole(p.Role), Fingerprints: fps}
}

func fromDTLSRole(role string) webrtc.DTLSRole {
	switch role {
	case "client":
		return webrtc.DTLSRoleClient
	case "server":
		return webrtc.DTLSRoleServer
	}
	return webrtc.DTLSRoleAuto
}
