package handlers

import (
	"context"
	"strings"

	"github.com/stellasora-tools/buildcore/internal/buildtoken"
	"github.com/stellasora-tools/buildcore/internal/dispatcher"
	"github.com/stellasora-tools/buildcore/internal/effectfile"
	"github.com/stellasora-tools/buildcore/internal/shareurl"
	"github.com/stellasora-tools/buildcore/internal/validate"
)

// Encoded is the result of the encode command.
type Encoded struct {
	Scheme     buildtoken.Version `json:"scheme"`
	Token      string             `json:"token"`
	Link       string             `json:"link"`
	ShortLink  string             `json:"shortLink,omitempty"`
	Validation validate.Result    `json:"validation"`
}

func (s *Service) handleEncode(_ context.Context, c dispatcher.Command) (any, error) {
	path := c.Arg(0)
	if path == "" {
		return nil, s.usage(c.Name)
	}

	version := s.deps.DefaultScheme
	if v := c.Arg(1); v != "" {
		var err error
		if version, err = buildtoken.ParseVersion(v); err != nil {
			return nil, err
		}
	}
	scheme, err := buildtoken.For(version)
	if err != nil {
		return nil, err
	}

	b, err := effectfile.LoadBuild(path)
	if err != nil {
		return nil, err
	}
	token, err := scheme.Encode(b)
	if err != nil {
		return nil, err
	}

	out := Encoded{Scheme: version, Token: token, Validation: validate.Validate(b, version)}
	if version == buildtoken.VersionA {
		out.Link = shareurl.QueryPath(token)
		out.ShortLink = shareurl.ShortLink(token)
	} else {
		out.Link = shareurl.BuildPath(token)
	}
	return out, nil
}

// handleDecode decodes its arguments as one input. Free text holding several
// /build/<token> links decodes to a list, one entry per distinct token.
func (s *Service) handleDecode(_ context.Context, c dispatcher.Command) (any, error) {
	if c.Arg(0) == "" {
		return nil, s.usage(c.Name)
	}
	in := strings.Join(c.Args, " ")

	tokens := shareurl.ExtractTokens(in)
	if len(tokens) < 2 {
		return DecodeInput(in)
	}
	out := make([]Decoded, 0, len(tokens))
	for _, token := range tokens {
		d, err := DecodeInput(token)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Validated is the result of the validate command.
type Validated struct {
	Decoded
	validate.Result
}

// handleValidate returns the violation list together with a *validate.ValidationError
// when the build is invalid.
func (s *Service) handleValidate(_ context.Context, c dispatcher.Command) (any, error) {
	if c.Arg(0) == "" {
		return nil, s.usage(c.Name)
	}
	d, err := DecodeInput(c.Arg(0))
	if err != nil {
		return nil, err
	}
	res := validate.Validate(d.Build, d.Scheme)
	return Validated{Decoded: d, Result: res}, res.Err()
}

func (s *Service) handleShorten(_ context.Context, c dispatcher.Command) (any, error) {
	in := strings.TrimSpace(c.Arg(0))
	if in == "" {
		return nil, s.usage(c.Name)
	}
	if i := strings.Index(in, "?"); i >= 0 {
		in = in[i+1:]
	}
	if _, err := (buildtoken.SchemeA{}).Decode(in); err != nil {
		return nil, err
	}
	return shareurl.ShortLink(in), nil
}

func (s *Service) handleExpand(_ context.Context, c dispatcher.Command) (any, error) {
	in := strings.TrimSpace(c.Arg(0))
	if in == "" {
		return nil, s.usage(c.Name)
	}
	if !strings.Contains(in, shareurl.ShortPrefix) {
		in = shareurl.ShortPrefix + in
	}
	return shareurl.ExpandShortLink(in)
}
