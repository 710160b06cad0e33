package gntp

import (
	"encoding/hex"
	"strings"
)

// RequestLine is the first line of a request:
//
//	GNTP/<version> <MessageType> <EncAlgo>[:<ivHex>][ <HashAlgo>:<hashHex>.<saltHex>]
//
// Immutable once parsed; it drives every later decryption and
// authentication decision on the connection.
type RequestLine struct {
	Version     string
	MessageType MessageType
	Encryption  EncryptionAlgorithm
	IV          []byte
	Auth        *AuthSpec
}

// ParseRequestLine parses and validates the request line. Wrong
// protocol name or version get their own taxonomy entries so peers
// can distinguish them from garbled requests.
func ParseRequestLine(line string) (*RequestLine, error) {
	fields := strings.Split(strings.TrimRight(line, " \t"), " ")
	if len(fields) < 3 || len(fields) > 4 {
		return nil, ErrInvalidRequest.WithDetail("expected 3 or 4 fields, found %d", len(fields))
	}

	protoAndVersion := strings.Split(fields[0], "/")
	if len(protoAndVersion) != 2 {
		return nil, ErrInvalidRequest.WithDetail("expected %s/%s protocol header", ProtocolName, ProtocolVersion)
	}
	if protoAndVersion[0] != ProtocolName {
		return nil, ErrUnknownProtocol.WithDetail("protocol %q", protoAndVersion[0])
	}
	if protoAndVersion[1] != ProtocolVersion {
		return nil, ErrUnknownProtocolVersion.WithDetail("version %q", protoAndVersion[1])
	}

	msgType, ok := ParseMessageType(fields[1])
	if !ok {
		return nil, ErrInvalidRequest.WithDetail("unknown message type: %q", fields[1])
	}

	rl := &RequestLine{
		Version:     protoAndVersion[1],
		MessageType: msgType,
	}

	algoAndIV := strings.SplitN(fields[2], ":", 2)
	rl.Encryption, ok = ParseEncryptionAlgorithm(algoAndIV[0])
	if !ok {
		return nil, ErrInvalidRequest.WithDetail("unsupported encryption type: %q", algoAndIV[0])
	}
	if len(algoAndIV) == 2 {
		iv, err := hex.DecodeString(algoAndIV[1])
		if err != nil {
			return nil, ErrInvalidRequest.WithDetail("IV is not valid hex: %v", err)
		}
		rl.IV = iv
	}

	if len(fields) == 4 {
		auth, err := parseAuthSpec(fields[3])
		if err != nil {
			return nil, err
		}
		rl.Auth = auth
	}
	return rl, nil
}

func parseAuthSpec(field string) (*AuthSpec, error) {
	algoAndHash := strings.Split(field, ":")
	if len(algoAndHash) != 2 {
		return nil, ErrNotAuthorized.WithDetail("unable to parse key hash: %q", field)
	}
	algo, ok := ParseHashAlgorithm(algoAndHash[0])
	if !ok {
		return nil, ErrInvalidRequest.WithDetail("unsupported hash type: %q", algoAndHash[0])
	}
	hashDotSalt := algoAndHash[1]
	dot := strings.IndexByte(hashDotSalt, '.')
	if dot < 1 || dot == len(hashDotSalt)-1 {
		return nil, ErrNotAuthorized.WithDetail("unable to parse hash and salt: %q", hashDotSalt)
	}
	return &AuthSpec{
		Algorithm: algo,
		HashHex:   hashDotSalt[:dot],
		SaltHex:   hashDotSalt[dot+1:],
	}, nil
}
