package apply

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"samplebook/internal/book"
	"samplebook/internal/email"
	"samplebook/internal/request"

	"github.com/rs/zerolog/log"
)

// Step is a position in the application flow.
type Step int

const (
	Step1 Step = iota + 1
	Step2
	Submitted
)

func (s Step) String() string {
	switch s {
	case Step1:
		return "step1"
	case Step2:
		return "step2"
	case Submitted:
		return "submitted"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	ErrWrongStep          = errors.New("action not allowed at this step")
	ErrNotAcademic        = errors.New("학교 이메일(.ac.kr, .edu 등)만 사용 가능합니다.")
	ErrNotRegistered      = errors.New("등록되지 않은 이메일입니다. 담당자에게 문의해주세요.")
	ErrVerificationFailed = errors.New("이메일 인증 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요.")
	ErrBookNotFound       = errors.New("선택한 도서를 찾을 수 없습니다.")
)

// MissingFieldError names the first required field that is empty.
type MissingFieldError struct {
	Field   string
	Message string
}

func (e *MissingFieldError) Error() string {
	return e.Message
}

var academicSuffixes = []string{".ac.kr", ".edu", ".edu.kr"}

// IsAcademicEmail reports whether addr belongs to an academic domain.
func IsAcademicEmail(addr string) bool {
	addr = email.Normalize(addr)
	for _, suffix := range academicSuffixes {
		if strings.HasSuffix(addr, suffix) {
			return true
		}
	}
	return false
}

// Fields is what the applicant entered across both steps.
type Fields struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Institution string `json:"institution"`
	Department  string `json:"department"`
	Position    string `json:"position"`
	Address     string `json:"address"`
	BookID      int    `json:"bookId"`
	Purpose     string `json:"purpose"`
	AgreeTerms  bool   `json:"agreeTerms"`
}

// Patch carries a partial update; nil fields are left alone.
type Patch struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Institution *string `json:"institution"`
	Department  *string `json:"department"`
	Position    *string `json:"position"`
	Address     *string `json:"address"`
	BookID      *int    `json:"bookId"`
	Purpose     *string `json:"purpose"`
	AgreeTerms  *bool   `json:"agreeTerms"`
}

// Flow is one applicant's pass through the two-step form.
type Flow struct {
	mu sync.Mutex

	id       string
	step     Step
	fields   Fields
	verified bool
	token    string
	lastErr  string
	receipt  *request.Receipt
	tokens   Issuer
	created  time.Time
	updated  time.Time
	now      func() time.Time
}

// Snapshot is a read-only view of a flow.
type Snapshot struct {
	ID            string           `json:"id"`
	Step          Step             `json:"step"`
	Fields        Fields           `json:"fields"`
	EmailVerified bool             `json:"emailVerified"`
	Error         string           `json:"error,omitempty"`
	Receipt       *request.Receipt `json:"receipt,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

func newFlow(id string, tokens Issuer, now func() time.Time) *Flow {
	at := now()
	return &Flow{id: id, step: Step1, tokens: tokens, created: at, updated: at, now: now}
}

func (f *Flow) ID() string {
	return f.id
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

func (f *Flow) snapshot() Snapshot {
	s := Snapshot{
		ID:            f.id,
		Step:          f.step,
		Fields:        f.fields,
		EmailVerified: f.verified,
		Error:         f.lastErr,
		CreatedAt:     f.created,
		UpdatedAt:     f.updated,
	}
	if f.receipt != nil {
		r := *f.receipt
		s.Receipt = &r
	}
	return s
}

func (f *Flow) touch() {
	f.updated = f.now()
}

// Update merges p into the flow. A changed email drops verification and,
// past the first step, returns the flow to it.
func (f *Flow) Update(p Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step == Submitted {
		return ErrWrongStep
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	if p.Email != nil && email.Normalize(*p.Email) != email.Normalize(f.fields.Email) {
		f.verified = false
		f.token = ""
		if f.step == Step2 {
			f.step = Step1
		}
	}
	set(&f.fields.Name, p.Name)
	set(&f.fields.Email, p.Email)
	set(&f.fields.Phone, p.Phone)
	set(&f.fields.Institution, p.Institution)
	set(&f.fields.Department, p.Department)
	set(&f.fields.Position, p.Position)
	set(&f.fields.Address, p.Address)
	set(&f.fields.Purpose, p.Purpose)
	if p.BookID != nil {
		f.fields.BookID = *p.BookID
	}
	if p.AgreeTerms != nil {
		f.fields.AgreeTerms = *p.AgreeTerms
	}
	f.touch()
	return nil
}

// VerifyEmail checks the entered address against the allow-list and fills
// in the profile fields the list knows about.
func (f *Flow) VerifyEmail(ctx context.Context, v Verifier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != Step1 {
		return ErrWrongStep
	}

	addr := f.fields.Email
	if addr == "" {
		return &MissingFieldError{Field: "email", Message: "이메일을 입력해주세요."}
	}
	if !IsAcademicEmail(addr) {
		return ErrNotAcademic
	}

	res, err := v.Verify(ctx, addr)
	if err != nil {
		log.Warn().Err(err).Str("flow", f.id).Msg("verify applicant email")
		return fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}
	if !res.Verified {
		return ErrNotRegistered
	}

	if f.tokens != nil {
		token, err := f.tokens.Issue(addr)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrVerificationFailed, err)
		}
		f.token = token
	}
	f.verified = true
	if res.Institution != "" {
		f.fields.Institution = res.Institution
	}
	if res.Department != "" {
		f.fields.Department = res.Department
	}
	if res.Name != "" {
		f.fields.Name = res.Name
	}
	f.touch()
	return nil
}

func (f *Flow) checkStep1() error {
	switch {
	case f.fields.Name == "":
		return &MissingFieldError{Field: "name", Message: "이름을 입력해주세요."}
	case f.fields.Email == "":
		return &MissingFieldError{Field: "email", Message: "이메일을 입력해주세요."}
	case !IsAcademicEmail(f.fields.Email):
		return ErrNotAcademic
	case !f.verified:
		return &MissingFieldError{Field: "email", Message: "이메일 인증을 완료해주세요."}
	case f.fields.Phone == "":
		return &MissingFieldError{Field: "phone", Message: "연락처를 입력해주세요."}
	case f.fields.Institution == "":
		return &MissingFieldError{Field: "institution", Message: "소속 기관을 입력해주세요."}
	case f.fields.Department == "":
		return &MissingFieldError{Field: "department", Message: "학과/부서를 입력해주세요."}
	case f.fields.Position == "":
		return &MissingFieldError{Field: "position", Message: "직책을 선택해주세요."}
	}
	return nil
}

func (f *Flow) checkStep2() error {
	switch {
	case f.fields.Address == "":
		return &MissingFieldError{Field: "address", Message: "배송지 주소를 입력해주세요."}
	case f.fields.BookID < 1:
		return &MissingFieldError{Field: "bookId", Message: "신청할 도서를 선택해주세요."}
	case f.fields.Purpose == "":
		return &MissingFieldError{Field: "purpose", Message: "신청 목적을 입력해주세요."}
	case !f.fields.AgreeTerms:
		return &MissingFieldError{Field: "agreeTerms", Message: "이용약관에 동의해주세요."}
	}
	return nil
}

// Next moves from the first step to the second.
func (f *Flow) Next() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != Step1 {
		return ErrWrongStep
	}
	if err := f.checkStep1(); err != nil {
		return err
	}
	f.step = Step2
	f.lastErr = ""
	f.touch()
	return nil
}

// Prev moves from the second step back to the first.
func (f *Flow) Prev() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != Step2 {
		return ErrWrongStep
	}
	f.step = Step1
	f.touch()
	return nil
}

// Submit sends the application as a single-book sample request. On failure
// the flow stays at the second step with the error recorded. The flow lock
// is held for the whole call, so a second submit waits and then sees the
// outcome of the first.
func (f *Flow) Submit(ctx context.Context, catalog Catalog, submitter Submitter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != Step2 {
		return ErrWrongStep
	}
	if err := f.checkStep2(); err != nil {
		return err
	}

	err := f.submit(ctx, catalog, submitter)
	f.touch()
	if err != nil {
		f.lastErr = userMessage(err)
		return err
	}
	f.lastErr = ""
	f.step = Submitted
	return nil
}

func (f *Flow) submit(ctx context.Context, catalog Catalog, submitter Submitter) error {
	b, err := catalog.GetByID(ctx, f.fields.BookID)
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			return ErrBookNotFound
		}
		return err
	}

	form := request.Form{
		Name:              f.fields.Name,
		Email:             f.fields.Email,
		Institution:       f.fields.Institution,
		Department:        f.fields.Department,
		Phone:             f.fields.Phone,
		Position:          f.fields.Position,
		Address:           f.fields.Address,
		Reason:            f.fields.Purpose,
		VerificationToken: f.token,
		Variant:           request.Detailed,
	}
	receipt, err := submitter.Submit(ctx, form, []request.Item{request.ItemFromBook(b)})
	if err != nil {
		return err
	}
	f.receipt = &receipt
	log.Info().Str("flow", f.id).Str("request_id", receipt.RequestID).Msg("application submitted")
	return nil
}

func userMessage(err error) string {
	var verr *request.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, ErrBookNotFound):
		return ErrBookNotFound.Error()
	default:
		return "견본 신청 제출 중 오류가 발생했습니다. 다시 시도해 주세요."
	}
}
