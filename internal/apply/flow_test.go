package apply

import (
	"context"
	"errors"
	"testing"
	"time"

	"samplebook/internal/book"
	"samplebook/internal/email"
	"samplebook/internal/request"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func testFlow(tokens Issuer) *Flow {
	return newFlow("flow-1", tokens, time.Now)
}

// readyForStep2 fills and verifies the first step.
func readyForStep2(t *testing.T, ctrl *gomock.Controller, f *Flow) {
	t.Helper()
	v := NewMockVerifier(ctrl)
	v.EXPECT().Verify(gomock.Any(), "kim@univ.ac.kr").Return(email.Result{Verified: true}, nil)

	require.NoError(t, f.Update(Patch{
		Name:        str("김교수"),
		Email:       str("kim@univ.ac.kr"),
		Phone:       str("010-1234-5678"),
		Institution: str("한국대학교"),
		Department:  str("컴퓨터공학과"),
		Position:    str("교수"),
	}))
	require.NoError(t, f.VerifyEmail(context.Background(), v))
	require.NoError(t, f.Next())
}

func fillStep2(t *testing.T, f *Flow) {
	t.Helper()
	id := 2
	agree := true
	require.NoError(t, f.Update(Patch{
		Address:    str("서울시 중구 세종대로 1"),
		BookID:     &id,
		Purpose:    str("전공 강의 교재 검토"),
		AgreeTerms: &agree,
	}))
}

func TestIsAcademicEmail(t *testing.T) {
	testCases := []struct {
		in   string
		want bool
	}{
		{"kim@univ.ac.kr", true},
		{"KIM@UNIV.AC.KR", true},
		{"lee@mit.edu", true},
		{"park@school.edu.kr", true},
		{"who@gmail.com", false},
		{"x@ac.kr.com", false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, IsAcademicEmail(tc.in), tc.in)
	}
}

func TestFlow_VerifyEmail(t *testing.T) {
	t.Run("non academic is rejected before lookup", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := testFlow(nil)
		require.NoError(t, f.Update(Patch{Email: str("who@gmail.com")}))

		err := f.VerifyEmail(context.Background(), NewMockVerifier(ctrl))
		assert.ErrorIs(t, err, ErrNotAcademic)
	})

	t.Run("not registered", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		v := NewMockVerifier(ctrl)
		v.EXPECT().Verify(gomock.Any(), "new@univ.ac.kr").Return(email.Result{Verified: false}, nil)
		f := testFlow(nil)
		require.NoError(t, f.Update(Patch{Email: str("new@univ.ac.kr")}))

		err := f.VerifyEmail(context.Background(), v)
		assert.ErrorIs(t, err, ErrNotRegistered)
		assert.False(t, f.Snapshot().EmailVerified)
	})

	t.Run("verifier failure is distinct", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		v := NewMockVerifier(ctrl)
		v.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(email.Result{}, errors.New("boom"))
		f := testFlow(nil)
		require.NoError(t, f.Update(Patch{Email: str("kim@univ.ac.kr")}))

		err := f.VerifyEmail(context.Background(), v)
		assert.ErrorIs(t, err, ErrVerificationFailed)
		assert.NotErrorIs(t, err, ErrNotRegistered)
	})

	t.Run("autofills non-empty values", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		v := NewMockVerifier(ctrl)
		v.EXPECT().Verify(gomock.Any(), "kim@univ.ac.kr").Return(email.Result{
			Verified:    true,
			Institution: "한국대학교",
			Name:        "김교수",
		}, nil)
		tokens := NewMockIssuer(ctrl)
		tokens.EXPECT().Issue("kim@univ.ac.kr").Return("tok", nil)

		f := testFlow(tokens)
		require.NoError(t, f.Update(Patch{Email: str("kim@univ.ac.kr"), Department: str("물리학과"), Institution: str("옛 대학")}))
		require.NoError(t, f.VerifyEmail(context.Background(), v))

		s := f.Snapshot()
		assert.True(t, s.EmailVerified)
		assert.Equal(t, "한국대학교", s.Fields.Institution)
		assert.Equal(t, "물리학과", s.Fields.Department)
		assert.Equal(t, "김교수", s.Fields.Name)
	})
}

func TestFlow_EmailChangeResetsVerification(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := testFlow(nil)
	readyForStep2(t, ctrl, f)

	require.NoError(t, f.Update(Patch{Email: str("KIM@univ.ac.kr ")}))
	assert.True(t, f.Snapshot().EmailVerified, "same address after normalization")

	require.NoError(t, f.Update(Patch{Email: str("other@univ.ac.kr")}))
	s := f.Snapshot()
	assert.False(t, s.EmailVerified)
	assert.Equal(t, Step1, s.Step)
}

func TestFlow_NextRequiresStep1Fields(t *testing.T) {
	ctrl := gomock.NewController(t)
	v := NewMockVerifier(ctrl)
	v.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(email.Result{Verified: true}, nil)
	f := testFlow(nil)

	require.NoError(t, f.Update(Patch{Name: str("김교수"), Email: str("kim@univ.ac.kr")}))
	var missing *MissingFieldError
	require.ErrorAs(t, f.Next(), &missing)
	assert.Equal(t, "email", missing.Field, "unverified email comes first")

	require.NoError(t, f.VerifyEmail(context.Background(), v))
	require.ErrorAs(t, f.Next(), &missing)
	assert.Equal(t, "phone", missing.Field)

	require.NoError(t, f.Update(Patch{Phone: str("010"), Institution: str("한국대학교"), Department: str("수학과")}))
	require.ErrorAs(t, f.Next(), &missing)
	assert.Equal(t, "position", missing.Field)

	require.NoError(t, f.Update(Patch{Position: str("강사")}))
	require.NoError(t, f.Next())
	assert.Equal(t, Step2, f.Snapshot().Step)
}

func TestFlow_PrevOnlyFromStep2(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := testFlow(nil)

	assert.ErrorIs(t, f.Prev(), ErrWrongStep)
	readyForStep2(t, ctrl, f)
	require.NoError(t, f.Prev())
	assert.Equal(t, Step1, f.Snapshot().Step)
}

func TestFlow_Submit(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := NewMockIssuer(ctrl)
	tokens.EXPECT().Issue("kim@univ.ac.kr").Return("tok", nil)
	catalog := NewMockCatalog(ctrl)
	submitter := NewMockSubmitter(ctrl)

	f := testFlow(tokens)
	readyForStep2(t, ctrl, f)

	var missing *MissingFieldError
	require.ErrorAs(t, f.Submit(context.Background(), catalog, submitter), &missing)
	assert.Equal(t, "address", missing.Field)

	fillStep2(t, f)
	b := book.Book{ID: 2, Title: "IT CookBook, 전력전자(2판)", Author: "Ned Mohan"}
	catalog.EXPECT().GetByID(gomock.Any(), 2).Return(b, nil)
	submitter.EXPECT().Submit(gomock.Any(), gomock.Any(), []request.Item{request.ItemFromBook(b)}).
		DoAndReturn(func(_ context.Context, form request.Form, _ []request.Item) (request.Receipt, error) {
			assert.Equal(t, request.Detailed, form.Variant)
			assert.Equal(t, "전공 강의 교재 검토", form.Reason)
			assert.Equal(t, "tok", form.VerificationToken)
			assert.Equal(t, "교수", form.Position)
			return request.Receipt{RequestID: "REQ-1", Count: 1}, nil
		})

	require.NoError(t, f.Submit(context.Background(), catalog, submitter))
	s := f.Snapshot()
	assert.Equal(t, Submitted, s.Step)
	require.NotNil(t, s.Receipt)
	assert.Equal(t, "REQ-1", s.Receipt.RequestID)

	assert.ErrorIs(t, f.Prev(), ErrWrongStep)
	assert.ErrorIs(t, f.Update(Patch{Name: str("x")}), ErrWrongStep)
	assert.ErrorIs(t, f.Submit(context.Background(), catalog, submitter), ErrWrongStep)
}

func TestFlow_SubmitFailureStaysAtStep2(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := NewMockCatalog(ctrl)
	submitter := NewMockSubmitter(ctrl)
	f := testFlow(nil)
	readyForStep2(t, ctrl, f)
	fillStep2(t, f)

	catalog.EXPECT().GetByID(gomock.Any(), 2).Return(book.Book{ID: 2, Title: "t"}, nil)
	submitter.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(request.Receipt{}, request.ErrSubmitFailed)

	err := f.Submit(context.Background(), catalog, submitter)
	assert.ErrorIs(t, err, request.ErrSubmitFailed)

	s := f.Snapshot()
	assert.Equal(t, Step2, s.Step)
	assert.NotEmpty(t, s.Error)
	assert.Nil(t, s.Receipt)
}

func TestFlow_SubmitUnknownBook(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := NewMockCatalog(ctrl)
	f := testFlow(nil)
	readyForStep2(t, ctrl, f)
	fillStep2(t, f)

	catalog.EXPECT().GetByID(gomock.Any(), 2).Return(book.Book{}, book.ErrNotFound)

	err := f.Submit(context.Background(), catalog, NewMockSubmitter(ctrl))
	assert.ErrorIs(t, err, ErrBookNotFound)
	assert.Equal(t, ErrBookNotFound.Error(), f.Snapshot().Error)
}

func TestFlows(t *testing.T) {
	fs := NewFlows(nil, time.Hour)
	clock := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	fs.now = func() time.Time { return clock }

	old := fs.Create()
	got, err := fs.Get(old.ID())
	require.NoError(t, err)
	assert.Same(t, old, got)

	_, err = fs.Get("missing")
	assert.ErrorIs(t, err, ErrFlowNotFound)

	clock = clock.Add(2 * time.Hour)
	fresh := fs.Create()
	assert.Equal(t, 1, fs.Len())
	_, err = fs.Get(old.ID())
	assert.ErrorIs(t, err, ErrFlowNotFound)
	_, err = fs.Get(fresh.ID())
	assert.NoError(t, err)
}
