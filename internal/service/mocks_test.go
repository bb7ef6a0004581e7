package service

import (
	"context"
	"sort"
	"time"

	"barberflow/internal/domain"
	"barberflow/internal/repository"
	"barberflow/internal/store"

	"github.com/google/uuid"
)

// stubTransactor runs the body directly. The in-memory repositories below
// ignore the Querier, so service logic is exercised without a database.
type stubTransactor struct {
	calls int
}

func (t *stubTransactor) WithinTx(ctx context.Context, fn func(tx store.Querier) error) error {
	t.calls++
	return fn(nil)
}

// hookTransactor runs before ahead of the transaction body, so a test can
// commit a competing change in the window between a service's
// pre-transaction read and its transaction.
type hookTransactor struct {
	before func()
}

func (t *hookTransactor) WithinTx(ctx context.Context, fn func(tx store.Querier) error) error {
	if t.before != nil {
		t.before()
	}
	return fn(nil)
}

// writeLog records the order of inserts across repositories.
type writeLog struct {
	ops []string
}

type loggingSlotRepo struct {
	*memSlotRepo
	log *writeLog
}

func (r *loggingSlotRepo) WithTx(q store.Querier) repository.SlotRepository { return r }

func (r *loggingSlotRepo) Insert(ctx context.Context, slot *domain.Slot) error {
	r.log.ops = append(r.log.ops, "slot-insert")
	return r.memSlotRepo.Insert(ctx, slot)
}

type loggingBookingRepo struct {
	*memBookingRepo
	log *writeLog
}

func (r *loggingBookingRepo) WithTx(q store.Querier) repository.BookingRepository { return r }

func (r *loggingBookingRepo) Insert(ctx context.Context, booking *domain.Booking) error {
	r.log.ops = append(r.log.ops, "booking-insert")
	return r.memBookingRepo.Insert(ctx, booking)
}

type memSlotRepo struct {
	slots map[string]*domain.Slot
}

func newMemSlotRepo() *memSlotRepo {
	return &memSlotRepo{slots: make(map[string]*domain.Slot)}
}

func slotKey(barberID uuid.UUID, slotID string) string {
	return barberID.String() + "/" + slotID
}

func (r *memSlotRepo) WithTx(q store.Querier) repository.SlotRepository { return r }

func (r *memSlotRepo) Get(ctx context.Context, barberID uuid.UUID, slotID string) (*domain.Slot, error) {
	slot, ok := r.slots[slotKey(barberID, slotID)]
	if !ok {
		return nil, repository.ErrSlotNotFound
	}
	return slot, nil
}

func (r *memSlotRepo) Insert(ctx context.Context, slot *domain.Slot) error {
	key := slotKey(slot.BarberID, slot.ID)
	if _, ok := r.slots[key]; ok {
		return repository.ErrSlotTaken
	}
	r.slots[key] = slot
	return nil
}

func (r *memSlotRepo) Delete(ctx context.Context, barberID uuid.UUID, slotID string) error {
	key := slotKey(barberID, slotID)
	if _, ok := r.slots[key]; !ok {
		return repository.ErrSlotNotFound
	}
	delete(r.slots, key)
	return nil
}

func (r *memSlotRepo) ListByDate(ctx context.Context, barberID uuid.UUID, dateKey string) ([]*domain.Slot, error) {
	var out []*domain.Slot
	for _, slot := range r.slots {
		if slot.BarberID == barberID && slot.DateKey == dateKey {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotStart.Before(out[j].SlotStart) })
	return out, nil
}

type memBookingRepo struct {
	bookings map[uuid.UUID]*domain.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[uuid.UUID]*domain.Booking)}
}

func (r *memBookingRepo) WithTx(q store.Querier) repository.BookingRepository { return r }

func (r *memBookingRepo) Insert(ctx context.Context, booking *domain.Booking) error {
	cp := *booking
	r.bookings[booking.ID] = &cp
	return nil
}

func (r *memBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	booking, ok := r.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *booking
	return &cp, nil
}

func (r *memBookingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus, cancelledAt *time.Time) error {
	booking, ok := r.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	booking.Status = status
	if cancelledAt != nil {
		booking.CancelledAt = cancelledAt
	}
	return nil
}

func (r *memBookingRepo) UpdateSlot(ctx context.Context, id uuid.UUID, slotStart time.Time, dateKey string, rescheduledFrom time.Time) error {
	booking, ok := r.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	booking.SlotStart = slotStart
	booking.DateKey = dateKey
	booking.RescheduledFrom = &rescheduledFrom
	return nil
}

func (r *memBookingRepo) SetSaleLink(ctx context.Context, id uuid.UUID, purchased bool, saleID *uuid.UUID) error {
	booking, ok := r.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	booking.ProductsPurchased = purchased
	booking.ProductSaleID = saleID
	return nil
}

func (r *memBookingRepo) ListByDate(ctx context.Context, barberID uuid.UUID, dateKey string) ([]*domain.Booking, error) {
	var out []*domain.Booking
	for _, booking := range r.bookings {
		if booking.BarberID == barberID && booking.DateKey == dateKey {
			cp := *booking
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memCustomerRepo struct {
	customers map[uuid.UUID]*domain.Customer
}

func newMemCustomerRepo() *memCustomerRepo {
	return &memCustomerRepo{customers: make(map[uuid.UUID]*domain.Customer)}
}

func (r *memCustomerRepo) WithTx(q store.Querier) repository.CustomerRepository { return r }

func (r *memCustomerRepo) Insert(ctx context.Context, customer *domain.Customer) error {
	cp := *customer
	r.customers[customer.ID] = &cp
	return nil
}

func (r *memCustomerRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	customer, ok := r.customers[id]
	if !ok {
		return nil, repository.ErrCustomerNotFound
	}
	cp := *customer
	return &cp, nil
}

func (r *memCustomerRepo) FindByWhatsapp(ctx context.Context, whatsapp string) (*domain.Customer, error) {
	for _, customer := range r.customers {
		if customer.Whatsapp == whatsapp {
			cp := *customer
			return &cp, nil
		}
	}
	return nil, repository.ErrCustomerNotFound
}

func (r *memCustomerRepo) ApplyBookingStats(ctx context.Context, id uuid.UUID, delta repository.BookingStatsDelta) error {
	customer, ok := r.customers[id]
	if !ok {
		return repository.ErrCustomerNotFound
	}
	customer.Stats.TotalBookings += delta.Total
	customer.Stats.CompletedBookings += delta.Completed
	customer.Stats.CancelledBookings += delta.Cancelled
	if delta.LastBookingAt != nil {
		customer.Stats.LastBookingAt = delta.LastBookingAt
	}
	return nil
}

func (r *memCustomerRepo) ApplyPurchaseStats(ctx context.Context, id uuid.UUID, delta repository.PurchaseStatsDelta) error {
	customer, ok := r.customers[id]
	if !ok {
		return repository.ErrCustomerNotFound
	}
	customer.Stats.TotalPurchases += delta.Purchases
	customer.Stats.TotalSpentCents += delta.SpentCents
	if delta.LastPurchaseAt != nil {
		customer.Stats.LastPurchaseAt = delta.LastPurchaseAt
	}
	return nil
}

type memBarberRepo struct {
	barbers map[uuid.UUID]*domain.Barber
}

func newMemBarberRepo() *memBarberRepo {
	return &memBarberRepo{barbers: make(map[uuid.UUID]*domain.Barber)}
}

func (r *memBarberRepo) Create(ctx context.Context, barber *domain.Barber) error {
	cp := *barber
	r.barbers[barber.ID] = &cp
	return nil
}

func (r *memBarberRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Barber, error) {
	barber, ok := r.barbers[id]
	if !ok {
		return nil, repository.ErrBarberNotFound
	}
	cp := *barber
	return &cp, nil
}

func (r *memBarberRepo) List(ctx context.Context) ([]*domain.Barber, error) {
	var out []*domain.Barber
	for _, barber := range r.barbers {
		cp := *barber
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memBarberRepo) UpdateSchedule(ctx context.Context, id uuid.UUID, schedule domain.WeekSchedule) error {
	barber, ok := r.barbers[id]
	if !ok {
		return repository.ErrBarberNotFound
	}
	barber.Schedule = schedule
	return nil
}

type memProductRepo struct {
	products map[uuid.UUID]*domain.Product
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: make(map[uuid.UUID]*domain.Product)}
}

func (r *memProductRepo) WithTx(q store.Querier) repository.ProductRepository { return r }

func (r *memProductRepo) Create(ctx context.Context, product *domain.Product) error {
	cp := *product
	r.products[product.ID] = &cp
	return nil
}

func (r *memProductRepo) Update(ctx context.Context, product *domain.Product) error {
	existing, ok := r.products[product.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	stock := existing.StockQuantity
	cp := *product
	cp.StockQuantity = stock
	r.products[product.ID] = &cp
	return nil
}

func (r *memProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *memProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *product
	return &cp, nil
}

func (r *memProductRepo) UpdateStock(ctx context.Context, id uuid.UUID, newQuantity int) error {
	product, ok := r.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	product.StockQuantity = newQuantity
	return nil
}

func (r *memProductRepo) List(ctx context.Context, categoryID *uuid.UUID, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	var out []*domain.Product
	for _, product := range r.products {
		if categoryID != nil && product.CategoryID != *categoryID {
			continue
		}
		cp := *product
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *memProductRepo) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	return r.List(ctx, nil, page, pageSize, "name", repository.SortOrderAsc)
}

type memSaleRepo struct {
	sales map[uuid.UUID]*domain.Sale
}

func newMemSaleRepo() *memSaleRepo {
	return &memSaleRepo{sales: make(map[uuid.UUID]*domain.Sale)}
}

func (r *memSaleRepo) WithTx(q store.Querier) repository.SaleRepository { return r }

func (r *memSaleRepo) Insert(ctx context.Context, sale *domain.Sale) error {
	cp := *sale
	cp.Items = append([]domain.SaleItem(nil), sale.Items...)
	r.sales[sale.ID] = &cp
	return nil
}

func (r *memSaleRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	sale, ok := r.sales[id]
	if !ok {
		return nil, repository.ErrSaleNotFound
	}
	cp := *sale
	cp.Items = append([]domain.SaleItem(nil), sale.Items...)
	return &cp, nil
}

func (r *memSaleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.sales[id]; !ok {
		return repository.ErrSaleNotFound
	}
	delete(r.sales, id)
	return nil
}

func (r *memSaleRepo) ListByDate(ctx context.Context, barberID uuid.UUID, dateKey string) ([]*domain.Sale, error) {
	var out []*domain.Sale
	for _, sale := range r.sales {
		if sale.BarberID == barberID && sale.CreatedAt.Format("2006-01-02") == dateKey {
			cp := *sale
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memMovementRepo struct {
	movements []*domain.StockMovement
}

func newMemMovementRepo() *memMovementRepo {
	return &memMovementRepo{}
}

func (r *memMovementRepo) WithTx(q store.Querier) repository.StockMovementRepository { return r }

func (r *memMovementRepo) Insert(ctx context.Context, movement *domain.StockMovement) error {
	cp := *movement
	r.movements = append(r.movements, &cp)
	return nil
}

func (r *memMovementRepo) ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]*domain.StockMovement, error) {
	var out []*domain.StockMovement
	for i := len(r.movements) - 1; i >= 0; i-- {
		if r.movements[i].ProductID == productID {
			cp := *r.movements[i]
			out = append(out, &cp)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memMovementRepo) byProduct(productID uuid.UUID) []*domain.StockMovement {
	var out []*domain.StockMovement
	for _, m := range r.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out
}

type memCategoryRepo struct {
	categories map[uuid.UUID]*domain.Category
}

func newMemCategoryRepo() *memCategoryRepo {
	return &memCategoryRepo{categories: make(map[uuid.UUID]*domain.Category)}
}

func (r *memCategoryRepo) Create(ctx context.Context, category *domain.Category) error {
	for _, existing := range r.categories {
		if existing.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	cp := *category
	r.categories[category.ID] = &cp
	return nil
}

func (r *memCategoryRepo) List(ctx context.Context) ([]*domain.Category, error) {
	var out []*domain.Category
	for _, category := range r.categories {
		cp := *category
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memCategoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	category, ok := r.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	cp := *category
	return &cp, nil
}

type memSettingsRepo struct {
	settings domain.ProductSettings
	reads    int
	writes   int
}

func (r *memSettingsRepo) GetProductSettings(ctx context.Context) (*domain.ProductSettings, error) {
	r.reads++
	cp := r.settings
	return &cp, nil
}

func (r *memSettingsRepo) UpdateProductSettings(ctx context.Context, settings *domain.ProductSettings) error {
	r.writes++
	r.settings = *settings
	return nil
}

// Shared fixtures.

func testLocation(t interface{ Fatalf(string, ...interface{}) }) *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

// fullWeekSchedule opens every day 09:00-19:00 with a lunch break.
func fullWeekSchedule() domain.WeekSchedule {
	schedule := make(domain.WeekSchedule, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		schedule[day] = domain.DaySchedule{
			Active: true,
			Open:   "09:00",
			Close:  "19:00",
			Breaks: []domain.BreakWindow{{Start: "12:00", End: "13:00"}},
		}
	}
	return schedule
}

func ownerActor() Actor {
	return Actor{UserID: uuid.NewString(), Role: domain.RoleOwner}
}

func barberActor(barberID uuid.UUID) Actor {
	return Actor{UserID: uuid.NewString(), Role: domain.RoleBarber, BarberID: &barberID}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
