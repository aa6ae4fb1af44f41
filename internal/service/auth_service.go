package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ffarras/multi-ad-login/internal/directory"
	"github.com/ffarras/multi-ad-login/internal/domain"
	"github.com/ffarras/multi-ad-login/internal/profile"
)

const defaultNetworkTimeout = 5 * time.Second

// AuthService drives a single authentication attempt end to end: route the
// login to a profile, bind against that profile's directory, normalize the
// returned attributes. Attempts are synchronous and fully independent; each
// opens its own directory connection.
type AuthService struct {
	resolver *profile.Resolver
	client   directory.Client
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewAuthService(resolver *profile.Resolver, client directory.Client, logger *zap.Logger) *AuthService {
	return &AuthService{
		resolver: resolver,
		client:   client,
		logger:   logger,
		tracer:   otel.Tracer("github.com/ffarras/multi-ad-login/internal/service"),
	}
}

// Authenticate composes with other authenticators in a chain: a prior
// successful result is returned untouched, and this service produces its own
// outcome only when asked to act. No error or panic escapes; every failure is
// folded into the Result.
func (s *AuthService) Authenticate(ctx context.Context, prior *Result, rawLogin, password string) *Result {
	if prior.Authenticated() {
		return prior
	}

	ctx, span := s.startSpan(ctx, "AuthService.Authenticate")
	defer span.End()

	login := strings.TrimSpace(rawLogin)
	if login == "" || password == "" {
		// Never contact a directory with empty credentials.
		return failure(StatusInvalidCredentials)
	}

	res, err := s.resolver.Resolve(ctx, login)
	if err != nil {
		if errors.Is(err, profile.ErrNoProfile) {
			return failure(StatusNoProfile)
		}
		span.RecordError(err)
		s.log().Error("profile resolution failed", zap.String("login", login), zap.Error(err))
		return failure(StatusDirectoryUnavailable)
	}

	p := res.Profile
	s.log().Info("authentication attempt routed",
		zap.String("login", login),
		zap.String("profile", p.ProfileName),
		zap.Bool("upn", res.EffectiveUPN != ""))

	conn, err := s.client.Bind(ctx, connConfig(p, res))
	if err != nil {
		span.RecordError(err)
		s.log().Warn("directory unreachable",
			zap.String("profile", p.ProfileName), zap.Error(err))
		return failure(StatusDirectoryUnavailable)
	}
	defer conn.Close()

	if err := conn.Authenticate(res.EffectiveUsername, password); err != nil {
		if errors.Is(err, directory.ErrInvalidCredentials) {
			s.log().Info("directory rejected credentials",
				zap.String("login", login), zap.String("profile", p.ProfileName))
			return failure(StatusInvalidCredentials)
		}
		span.RecordError(err)
		s.log().Warn("directory bind failed",
			zap.String("profile", p.ProfileName), zap.Error(err))
		return failure(StatusDirectoryUnavailable)
	}

	record, err := conn.FetchAttributes(res.EffectiveUsername, directory.UserAttributes)
	if err != nil {
		span.RecordError(err)
		s.log().Error("attribute fetch failed after successful bind",
			zap.String("profile", p.ProfileName), zap.Error(err))
		return failure(StatusDirectoryUnavailable)
	}
	if record == nil {
		s.log().Error("bind succeeded but no directory entry found",
			zap.String("login", login), zap.String("profile", p.ProfileName))
		return failure(StatusDirectoryUnavailable)
	}

	if !record.Complete() {
		s.log().Error("directory returned incomplete attributes",
			zap.String("login", login),
			zap.String("profile", p.ProfileName),
			zap.Bool("has_samaccountname", record.SAMAccountName != ""))
		return failure(StatusIncompleteData)
	}

	s.audit("directory.login.success",
		"login", login,
		"profile", p.ProfileName,
		"samaccountname", record.SAMAccountName)

	return &Result{Status: StatusSuccess, Record: *record, ProfileName: p.ProfileName}
}

// connConfig maps a profile onto connection parameters for one attempt. The
// account suffix prefers the profile's first configured suffix, then the
// domain of the submitted UPN.
func connConfig(p domain.Profile, res *profile.Resolution) directory.ConnConfig {
	suffix := p.AccountSuffix()
	if suffix == "" && res.EffectiveUPN != "" {
		if at := strings.Index(res.EffectiveUPN, "@"); at >= 0 {
			suffix = res.EffectiveUPN[at:]
		}
	}

	timeout := time.Duration(p.NetworkTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultNetworkTimeout
	}

	return directory.ConnConfig{
		Servers:         p.DomainControllers,
		Port:            p.Port,
		Security:        p.Security(),
		AllowSelfSigned: p.AllowSelfSigned,
		Timeout:         timeout,
		BaseDN:          p.BaseDN,
		BindUsername:    p.BindUsername,
		BindPassword:    p.BindPassword,
		AccountSuffix:   suffix,
	}
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *AuthService) audit(event string, attrs ...any) {
	logger := s.log()
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}

func (s *AuthService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
