package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/veloshop/ChatCart/internal/models"
	"github.com/veloshop/ChatCart/internal/nlp"
	"github.com/veloshop/ChatCart/internal/store"
)

// fakeMessenger records every send for assertions. Safe for concurrent use.
type fakeMessenger struct {
	mu           sync.Mutex
	failAll      bool
	texts        []string
	buttonSends  [][]models.Button
	listSends    [][]models.ListRow
	productSends [][]string
	templates    []models.TemplateArgs
}

func (f *fakeMessenger) SendText(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("send failed")
	}
	f.texts = append(f.texts, body)
	return nil
}

func (f *fakeMessenger) SendButtons(ctx context.Context, to, body string, buttons []models.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("send failed")
	}
	f.buttonSends = append(f.buttonSends, buttons)
	return nil
}

func (f *fakeMessenger) SendList(ctx context.Context, to, header, body string, rows []models.ListRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("send failed")
	}
	f.listSends = append(f.listSends, rows)
	return nil
}

func (f *fakeMessenger) SendProductList(ctx context.Context, to, header, body string, skus []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("send failed")
	}
	f.productSends = append(f.productSends, skus)
	return nil
}

func (f *fakeMessenger) SendTemplate(ctx context.Context, to string, args models.TemplateArgs) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("send failed")
	}
	f.templates = append(f.templates, args)
	return nil
}

func (f *fakeMessenger) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

// fakeClassifier returns a fixed result or error.
type fakeClassifier struct {
	result *models.IntentResult
	err    error
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (*models.IntentResult, error) {
	return f.result, f.err
}

func newTestEngine() (*Engine, *store.InMemoryStore, *fakeMessenger) {
	st := store.NewInMemoryStore()
	msgr := &fakeMessenger{}
	return New(st, msgr, &fakeClassifier{result: &models.IntentResult{}}), st, msgr
}

func mustState(t *testing.T, st store.Store, handle string, want models.ConversationState) {
	t.Helper()
	profile, err := st.GetOrCreateProfile(handle)
	if err != nil {
		t.Fatalf("GetOrCreateProfile: %v", err)
	}
	if profile.State != want {
		t.Fatalf("state = %s, want %s", profile.State, want)
	}
}

func TestHandleMessageEmptyHandle(t *testing.T) {
	eng, _, _ := newTestEngine()
	err := eng.HandleMessage(context.Background(), "", models.TextMessage{Body: "hi"})
	if !errors.Is(err, models.ErrEmptyRecipient) {
		t.Errorf("expected ErrEmptyRecipient, got %v", err)
	}
}

func TestGreetingShowsMenu(t *testing.T) {
	eng, st, msgr := newTestEngine()
	for _, greeting := range []string{"hi", "Hello", "  MENU  "} {
		if err := eng.HandleMessage(context.Background(), "+15550001", models.TextMessage{Body: greeting}); err != nil {
			t.Fatalf("HandleMessage(%q): %v", greeting, err)
		}
	}
	if len(msgr.listSends) != 3 {
		t.Fatalf("expected 3 menu list sends, got %d", len(msgr.listSends))
	}
	if len(msgr.listSends[0]) != 5 {
		t.Errorf("expected 5 menu rows, got %d", len(msgr.listSends[0]))
	}
	mustState(t, st, "+15550001", models.StateDefault)
}

func TestUnrecognizedTextFallsBack(t *testing.T) {
	eng, st, msgr := newTestEngine()
	if err := eng.HandleMessage(context.Background(), "+15550002", models.TextMessage{Body: "asdf qwerty"}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := msgr.lastText(); got != replyFallback {
		t.Errorf("reply = %q, want fallback", got)
	}
	mustState(t, st, "+15550002", models.StateDefault)
}

func TestClassifierErrorDegradesToFallback(t *testing.T) {
	st := store.NewInMemoryStore()
	msgr := &fakeMessenger{}
	eng := New(st, msgr, &fakeClassifier{err: errors.New("api down")})
	if err := eng.HandleMessage(context.Background(), "+15550003", models.TextMessage{Body: "show me things"}); err != nil {
		t.Fatalf("classifier error must not surface: %v", err)
	}
	if got := msgr.lastText(); got != replyFallback {
		t.Errorf("reply = %q, want fallback", got)
	}
}

func TestNilClassifierFallsBack(t *testing.T) {
	st := store.NewInMemoryStore()
	msgr := &fakeMessenger{}
	eng := New(st, msgr, nil)
	if err := eng.HandleMessage(context.Background(), "+15550004", models.TextMessage{Body: "anything"}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := msgr.lastText(); got != replyFallback {
		t.Errorf("reply = %q, want fallback", got)
	}
}

func TestCategoryEntityRoutesToProductList(t *testing.T) {
	st := store.NewInMemoryStore()
	msgr := &fakeMessenger{}
	classifier := &fakeClassifier{result: &models.IntentResult{
		Intent: nlp.IntentBrowseProducts,
		Entities: map[string][]models.Entity{
			nlp.EntityCategory: {{Value: "Electronics", Confidence: 0.92}},
		},
	}}
	eng := New(st, msgr, classifier)
	if err := eng.HandleMessage(context.Background(), "+15550005", models.TextMessage{Body: "show me electronics"}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(msgr.productSends) != 1 {
		t.Fatalf("expected 1 product list send, got %d", len(msgr.productSends))
	}
	if len(msgr.productSends[0]) != 4 {
		t.Errorf("expected 4 electronics SKUs, got %d", len(msgr.productSends[0]))
	}
}

func TestBrowseIntentWithoutCategorySendsButtons(t *testing.T) {
	st := store.NewInMemoryStore()
	msgr := &fakeMessenger{}
	classifier := &fakeClassifier{result: &models.IntentResult{Intent: nlp.IntentBrowseProducts}}
	eng := New(st, msgr, classifier)
	if err := eng.HandleMessage(context.Background(), "+15550006", models.TextMessage{Body: "I want to shop"}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(msgr.buttonSends) != 1 {
		t.Fatalf("expected 1 button send, got %d", len(msgr.buttonSends))
	}
	if got := msgr.buttonSends[0][0].ID; got != CategoryButtonPrefix+"electronics" {
		t.Errorf("first category button ID = %q", got)
	}
}

func TestClassifiedIntentRouting(t *testing.T) {
	t.Run("greeting shows menu", func(t *testing.T) {
		st := store.NewInMemoryStore()
		msgr := &fakeMessenger{}
		eng := New(st, msgr, &fakeClassifier{result: &models.IntentResult{Intent: nlp.IntentGreeting}})
		if err := eng.HandleMessage(context.Background(), "+15550009", models.TextMessage{Body: "good morning"}); err != nil {
			t.Fatalf("HandleMessage: %v", err)
		}
		if len(msgr.listSends) != 1 {
			t.Errorf("expected menu list send, got %d", len(msgr.listSends))
		}
	})

	t.Run("track order opens prompt", func(t *testing.T) {
		st := store.NewInMemoryStore()
		msgr := &fakeMessenger{}
		eng := New(st, msgr, &fakeClassifier{result: &models.IntentResult{Intent: nlp.IntentTrackOrder}})
		if err := eng.HandleMessage(context.Background(), "+15550009", models.TextMessage{Body: "where is my package"}); err != nil {
			t.Fatalf("HandleMessage: %v", err)
		}
		if got := msgr.lastText(); got != replyAskOrderID {
			t.Errorf("reply = %q, want order ID prompt", got)
		}
		mustState(t, st, "+15550009", models.StateAwaitingOrderID)
	})
}

func TestUnstockedCategoryReplies(t *testing.T) {
	eng, st, msgr := newTestEngine()
	if err := eng.HandleMessage(context.Background(), "+15550007", models.ButtonSelection{ButtonID: CategoryButtonPrefix + "clothing"}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := msgr.lastText(); got != replyNoCategory {
		t.Errorf("reply = %q, want %q", got, replyNoCategory)
	}
	mustState(t, st, "+15550007", models.StateDefault)
}

func TestUnknownCategoryReplies(t *testing.T) {
	eng, _, msgr := newTestEngine()
	if err := eng.HandleMessage(context.Background(), "+15550008", models.ButtonSelection{ButtonID: CategoryButtonPrefix + "furniture"}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := msgr.lastText(); got != replyNoCategory {
		t.Errorf("reply = %q, want %q", got, replyNoCategory)
	}
}

func TestProductOrderAccumulatesCart(t *testing.T) {
	eng, st, _ := newTestEngine()
	handle := "+15550010"
	order := models.ProductOrder{Items: []models.OrderItem{{SKU: "SKU-TV-43", Quantity: 2}}}
	for i := 0; i < 2; i++ {
		if err := eng.HandleMessage(context.Background(), handle, order); err != nil {
			t.Fatalf("HandleMessage: %v", err)
		}
	}
	cart, err := st.ListCart(handle)
	if err != nil {
		t.Fatalf("ListCart: %v", err)
	}
	if len(cart) != 1 {
		t.Fatalf("expected 1 cart line, got %d", len(cart))
	}
	if cart[0].Quantity != 4 {
		t.Errorf("quantity = %d, want 4 (accumulated)", cart[0].Quantity)
	}
}

func TestViewCartEmpty(t *testing.T) {
	eng, _, msgr := newTestEngine()
	if err := eng.HandleMessage(context.Background(), "+15550011", models.ListSelection{OptionID: OptionViewCart}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := msgr.lastText(); got != replyCartEmpty {
		t.Errorf("reply = %q, want %q", got, replyCartEmpty)
	}
}

func TestCheckoutRoundTrip(t *testing.T) {
	eng, st, msgr := newTestEngine()
	handle := "+15550012"
	ctx := context.Background()

	// Add products, review the cart, then check out.
	if err := eng.HandleMessage(ctx, handle, models.ProductOrder{Items: []models.OrderItem{
		{SKU: "SKU-TV-43", Quantity: 1},
		{SKU: "SKU-EARBUDS-BT", Quantity: 2},
	}}); err != nil {
		t.Fatalf("product order: %v", err)
	}
	if err := eng.HandleMessage(ctx, handle, models.ListSelection{OptionID: OptionViewCart}); err != nil {
		t.Fatalf("view cart: %v", err)
	}
	if len(msgr.buttonSends) != 1 {
		t.Fatalf("expected cart summary buttons, got %d button sends", len(msgr.buttonSends))
	}

	if err := eng.HandleMessage(ctx, handle, models.ButtonSelection{ButtonID: ButtonCheckout}); err != nil {
		t.Fatalf("checkout button: %v", err)
	}
	mustState(t, st, handle, models.StateAwaitingName)

	if err := eng.HandleMessage(ctx, handle, models.TextMessage{Body: "Alice"}); err != nil {
		t.Fatalf("name input: %v", err)
	}
	mustState(t, st, handle, models.StateAwaitingAddress)
	if got := msgr.lastText(); got != fmt.Sprintf(replyAskAddress, "Alice") {
		t.Errorf("address prompt = %q", got)
	}

	if err := eng.HandleMessage(ctx, handle, models.TextMessage{Body: "123 Main St"}); err != nil {
		t.Fatalf("address input: %v", err)
	}
	mustState(t, st, handle, models.StateDefault)

	// Cart must be cleared by checkout.
	cart, err := st.ListCart(handle)
	if err != nil {
		t.Fatalf("ListCart: %v", err)
	}
	if len(cart) != 0 {
		t.Errorf("cart not cleared after checkout: %d lines", len(cart))
	}

	// The confirmation text carries the order ID; the template carries name and ID.
	if len(msgr.templates) != 1 {
		t.Fatalf("expected 1 template send, got %d", len(msgr.templates))
	}
	tmpl := msgr.templates[0]
	if tmpl.Name != OrderConfirmationTemplate {
		t.Errorf("template name = %q", tmpl.Name)
	}
	if len(tmpl.BodyParams) != 2 || tmpl.BodyParams[0] != "Alice" {
		t.Errorf("template params = %v", tmpl.BodyParams)
	}
	orderID := tmpl.BodyParams[1]
	if !strings.HasPrefix(orderID, "ORD-") {
		t.Errorf("order ID %q missing ORD- prefix", orderID)
	}

	// Profile fields persisted.
	profile, err := st.GetOrCreateProfile(handle)
	if err != nil {
		t.Fatalf("GetOrCreateProfile: %v", err)
	}
	if profile.Name != "Alice" || profile.Address != "123 Main St" {
		t.Errorf("profile = %q / %q", profile.Name, profile.Address)
	}

	// Order retrievable and immutable against later cart changes.
	order, err := st.GetOrder(orderID)
	if err != nil || order == nil {
		t.Fatalf("GetOrder(%s) = %v, %v", orderID, order, err)
	}
	if len(order.Items) != 2 {
		t.Fatalf("order items = %d, want 2", len(order.Items))
	}
	if err := eng.HandleMessage(ctx, handle, models.ProductOrder{Items: []models.OrderItem{{SKU: "SKU-PHONE-128", Quantity: 9}}}); err != nil {
		t.Fatalf("post-order product order: %v", err)
	}
	again, err := st.GetOrder(orderID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if len(again.Items) != 2 {
		t.Errorf("order mutated after later cart change: %d items", len(again.Items))
	}
}

func TestCheckoutWithEmptyCart(t *testing.T) {
	eng, st, msgr := newTestEngine()
	handle := "+15550013"
	ctx := context.Background()

	if err := eng.HandleMessage(ctx, handle, models.ButtonSelection{ButtonID: ButtonCheckout}); err != nil {
		t.Fatalf("checkout button: %v", err)
	}
	if err := eng.HandleMessage(ctx, handle, models.TextMessage{Body: "Bob"}); err != nil {
		t.Fatalf("name input: %v", err)
	}
	if err := eng.HandleMessage(ctx, handle, models.TextMessage{Body: "5 Side Rd"}); err != nil {
		t.Fatalf("address input: %v", err)
	}
	mustState(t, st, handle, models.StateDefault)
	if len(msgr.templates) != 1 {
		t.Fatalf("expected confirmation template even for empty cart, got %d", len(msgr.templates))
	}
	order, err := st.GetOrder(msgr.templates[0].BodyParams[1])
	if err != nil || order == nil {
		t.Fatalf("GetOrder: %v, %v", order, err)
	}
	if len(order.Items) != 0 {
		t.Errorf("empty-cart order has %d items", len(order.Items))
	}
}

func TestTrackOrderRoundTrip(t *testing.T) {
	eng, st, msgr := newTestEngine()
	handle := "+15550014"
	ctx := context.Background()

	orderID, err := st.CreateOrder(handle, "Carol", "9 Hill Ave", []models.OrderItem{{SKU: "SKU-TV-43", Quantity: 1}})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if err := eng.HandleMessage(ctx, handle, models.ListSelection{OptionID: OptionTrackOrder}); err != nil {
		t.Fatalf("track option: %v", err)
	}
	mustState(t, st, handle, models.StateAwaitingOrderID)

	// IDs are matched case-insensitively with surrounding whitespace ignored.
	sloppy := "  " + strings.ToLower(orderID) + "  "
	if err := eng.HandleMessage(ctx, handle, models.TextMessage{Body: sloppy}); err != nil {
		t.Fatalf("order ID input: %v", err)
	}
	mustState(t, st, handle, models.StateDefault)

	found := false
	msgr.mu.Lock()
	for _, text := range msgr.texts {
		if strings.Contains(text, orderID) && strings.Contains(text, string(models.OrderStatusProcessing)) {
			found = true
		}
	}
	msgr.mu.Unlock()
	if !found {
		t.Errorf("no status reply containing %s", orderID)
	}
}

func TestTrackOrderMissKeepsState(t *testing.T) {
	eng, st, msgr := newTestEngine()
	handle := "+15550015"
	ctx := context.Background()

	if err := eng.HandleMessage(ctx, handle, models.ListSelection{OptionID: OptionTrackOrder}); err != nil {
		t.Fatalf("track option: %v", err)
	}
	if err := eng.HandleMessage(ctx, handle, models.TextMessage{Body: "ORD-000000"}); err != nil {
		t.Fatalf("miss must not be an error: %v", err)
	}
	if got := msgr.lastText(); got != replyOrderMissing {
		t.Errorf("reply = %q, want %q", got, replyOrderMissing)
	}
	mustState(t, st, handle, models.StateAwaitingOrderID)

	// "menu" escapes the prompt.
	if err := eng.HandleMessage(ctx, handle, models.TextMessage{Body: "menu"}); err != nil {
		t.Fatalf("escape: %v", err)
	}
	mustState(t, st, handle, models.StateDefault)
}

func TestAgentHandoffSilencesBot(t *testing.T) {
	eng, st, msgr := newTestEngine()
	handle := "+15550016"
	ctx := context.Background()

	if err := eng.HandleMessage(ctx, handle, models.ListSelection{OptionID: OptionTalkToAgent}); err != nil {
		t.Fatalf("agent option: %v", err)
	}
	mustState(t, st, handle, models.StateAwaitingAgent)
	before := len(msgr.texts)

	for _, msg := range []models.IncomingMessage{
		models.TextMessage{Body: "hello?"},
		models.ListSelection{OptionID: OptionViewCart},
		models.ButtonSelection{ButtonID: ButtonMenu},
	} {
		if err := eng.HandleMessage(ctx, handle, msg); err != nil {
			t.Fatalf("HandleMessage during hand-off: %v", err)
		}
	}
	msgr.mu.Lock()
	after := len(msgr.texts) + len(msgr.buttonSends) + len(msgr.listSends)
	msgr.mu.Unlock()
	if after != before {
		t.Errorf("bot replied during agent hand-off")
	}
	mustState(t, st, handle, models.StateAwaitingAgent)
}

func TestAdminResumeFromEveryState(t *testing.T) {
	states := []models.ConversationState{
		models.StateDefault,
		models.StateAwaitingName,
		models.StateAwaitingAddress,
		models.StateAwaitingOrderID,
		models.StateAwaitingAgent,
	}
	for _, state := range states {
		t.Run(string(state), func(t *testing.T) {
			eng, st, msgr := newTestEngine()
			handle := "+15550017"
			if _, err := st.GetOrCreateProfile(handle); err != nil {
				t.Fatalf("GetOrCreateProfile: %v", err)
			}
			if err := st.SetState(handle, state); err != nil {
				t.Fatalf("SetState: %v", err)
			}
			if err := eng.HandleMessage(context.Background(), handle, models.TextMessage{Body: "!resume"}); err != nil {
				t.Fatalf("HandleMessage: %v", err)
			}
			mustState(t, st, handle, models.StateDefault)
			if got := msgr.lastText(); got != replyResumed {
				t.Errorf("reply = %q, want %q", got, replyResumed)
			}
		})
	}
}

func TestSpecialOffersComingSoon(t *testing.T) {
	eng, st, msgr := newTestEngine()
	if err := eng.HandleMessage(context.Background(), "+15550018", models.ListSelection{OptionID: OptionSpecialOffers}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := msgr.lastText(); got != replyComingSoon {
		t.Errorf("reply = %q, want %q", got, replyComingSoon)
	}
	mustState(t, st, "+15550018", models.StateDefault)
}

func TestMessengerFailureDoesNotBlockTransition(t *testing.T) {
	st := store.NewInMemoryStore()
	msgr := &fakeMessenger{failAll: true}
	eng := New(st, msgr, &fakeClassifier{result: &models.IntentResult{}})
	handle := "+15550019"
	if err := eng.HandleMessage(context.Background(), handle, models.ButtonSelection{ButtonID: ButtonCheckout}); err != nil {
		t.Fatalf("delivery failure must not surface: %v", err)
	}
	mustState(t, st, handle, models.StateAwaitingName)
}

func TestConcurrentSameHandleNoLostUpdates(t *testing.T) {
	eng, st, _ := newTestEngine()
	handle := "+15550020"
	const workers = 16

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := eng.HandleMessage(context.Background(), handle, models.ProductOrder{
				Items: []models.OrderItem{{SKU: "SKU-PHONE-128", Quantity: 1}},
			})
			if err != nil {
				t.Errorf("HandleMessage: %v", err)
			}
		}()
	}
	wg.Wait()

	cart, err := st.ListCart(handle)
	if err != nil {
		t.Fatalf("ListCart: %v", err)
	}
	if len(cart) != 1 || cart[0].Quantity != workers {
		t.Errorf("cart = %+v, want single line with quantity %d", cart, workers)
	}
}

// serializationStore records an overlap whenever a second profile read for a
// handle arrives before the state write that closes the prior read. Any
// overlap means two messages for the same handle ran their
// read-transition-write window concurrently.
type serializationStore struct {
	*store.InMemoryStore
	mu       sync.Mutex
	inWindow map[string]int
	overlaps int
}

func (s *serializationStore) GetOrCreateProfile(handle string) (*models.Profile, error) {
	s.mu.Lock()
	if s.inWindow[handle] > 0 {
		s.overlaps++
	}
	s.inWindow[handle]++
	s.mu.Unlock()
	return s.InMemoryStore.GetOrCreateProfile(handle)
}

func (s *serializationStore) SetState(handle string, state models.ConversationState) error {
	s.mu.Lock()
	if s.inWindow[handle] > 0 {
		s.inWindow[handle]--
	}
	s.mu.Unlock()
	return s.InMemoryStore.SetState(handle, state)
}

func TestConcurrentSameHandleSerializesTransitions(t *testing.T) {
	st := &serializationStore{
		InMemoryStore: store.NewInMemoryStore(),
		inWindow:      make(map[string]int),
	}
	eng := New(st, &fakeMessenger{}, &fakeClassifier{result: &models.IntentResult{}})
	handle := "+15550021"
	const workers = 16

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := eng.HandleMessage(context.Background(), handle, models.ButtonSelection{
				ButtonID: ButtonCheckout,
			})
			if err != nil {
				t.Errorf("HandleMessage: %v", err)
			}
		}()
	}
	wg.Wait()

	if st.overlaps != 0 {
		t.Errorf("observed %d interleaved read-transition-write windows, want 0", st.overlaps)
	}
	mustState(t, st, handle, models.StateAwaitingName)
}

func TestRenderCartSummary(t *testing.T) {
	got := renderCartSummary([]models.CartItem{
		{SKU: "SKU-TV-43", Quantity: 1},
		{SKU: "SKU-EARBUDS-BT", Quantity: 3},
	})
	if !strings.Contains(got, "1 × SKU-TV-43") || !strings.Contains(got, "3 × SKU-EARBUDS-BT") {
		t.Errorf("summary missing lines: %q", got)
	}
	if !strings.HasSuffix(got, "Total items: 4") {
		t.Errorf("summary missing total: %q", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Errorf("summary has trailing separator: %q", got)
	}
}

func TestMatchesKeyword(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"hi", true},
		{"  HELLO ", true},
		{"menu", true},
		{"hi there", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := matchesKeyword(tc.text, greetingKeywords); got != tc.want {
			t.Errorf("matchesKeyword(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
