package notifications

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"library-backend/pkg/models"
	"library-backend/pkg/services"
)

// Sender is the external send capability. No real email goes out in this
// deployment; LogSender stands in for an SMTP or provider integration.
type Sender interface {
	Send(recipient, subject, body string) error
}

// LogSender writes the would-be email to the log and reports success.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(recipient, subject, body string) error {
	s.logger.Info("notification sent",
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// Report summarizes one full notification run.
type Report struct {
	Reminders30 int    `json:"rappels_30_jours"`
	Reminders5  int    `json:"rappels_5_jours"`
	Overdue     int    `json:"notifications_retard"`
	Timestamp   string `json:"timestamp"`
}

// Dispatcher turns classified loans into messages and hands them to the
// sender, one loan at a time. A failed send is logged and skipped; it
// never aborts the rest of the batch.
type Dispatcher struct {
	loans   *services.LoanService
	sender  Sender
	ledger  *SentLedger
	logger  *zap.Logger
	nowFunc func() time.Time
}

func NewDispatcher(loans *services.LoanService, sender Sender, ledger *SentLedger, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		loans:   loans,
		sender:  sender,
		ledger:  ledger,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.nowFunc = now
}

// ProcessReminders30 sends the J-30 batch and returns the success count.
func (d *Dispatcher) ProcessReminders30() (int, error) {
	loans, err := d.loans.RemindersDue(Threshold30)
	if err != nil {
		return 0, err
	}
	return d.dispatch(loans, KindReminder30), nil
}

// ProcessReminders5 sends the J-5 batch and returns the success count.
func (d *Dispatcher) ProcessReminders5() (int, error) {
	loans, err := d.loans.RemindersDue(Threshold5)
	if err != nil {
		return 0, err
	}
	return d.dispatch(loans, KindReminder5), nil
}

// ProcessOverdue reindexes overdue statuses first, then notifies every
// overdue loan. Returns the success count.
func (d *Dispatcher) ProcessOverdue() (int, error) {
	if _, err := d.loans.ReindexOverdue(); err != nil {
		return 0, err
	}
	loans, err := d.loans.OverdueLoans()
	if err != nil {
		return 0, err
	}
	return d.dispatch(loans, KindOverdue), nil
}

// ProcessAll runs the three batches in sequence. Each step is fault
// isolated: a failure in one leaves its count at zero and the others
// still run.
func (d *Dispatcher) ProcessAll() Report {
	d.logger.Info("notification run started")

	report := Report{Timestamp: d.nowFunc().Format(time.RFC3339)}

	if n, err := d.ProcessReminders30(); err != nil {
		d.logger.Error("J-30 reminder batch failed", zap.Error(err))
	} else {
		report.Reminders30 = n
	}
	if n, err := d.ProcessReminders5(); err != nil {
		d.logger.Error("J-5 reminder batch failed", zap.Error(err))
	} else {
		report.Reminders5 = n
	}
	if n, err := d.ProcessOverdue(); err != nil {
		d.logger.Error("overdue notification batch failed", zap.Error(err))
	} else {
		report.Overdue = n
	}

	d.logger.Info("notification run finished",
		zap.Int("reminders_30", report.Reminders30),
		zap.Int("reminders_5", report.Reminders5),
		zap.Int("overdue", report.Overdue),
	)
	return report
}

func (d *Dispatcher) dispatch(loans []models.LoanDetail, kind Kind) int {
	sent := 0
	for _, loan := range loans {
		if d.ledger.AlreadySent(loan.Loan.ID, kind, d.nowFunc()) {
			d.logger.Debug("notification already sent today, skipping",
				zap.Uint("loan_id", loan.Loan.ID),
				zap.String("kind", string(kind)),
			)
			continue
		}

		subject, body := d.buildMessage(&loan, kind)
		if err := d.sender.Send(loan.UserEmail, subject, body); err != nil {
			d.logger.Error("failed to send notification",
				zap.Uint("loan_id", loan.Loan.ID),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			continue
		}
		d.ledger.MarkSent(loan.Loan.ID, kind, d.nowFunc())
		sent++
	}
	return sent
}

func (d *Dispatcher) buildMessage(loan *models.LoanDetail, kind Kind) (subject, body string) {
	dueDate := loan.Loan.DueDate.Format("2006-01-02")
	loanDate := loan.Loan.LoanDate.Format("2006-01-02")

	switch kind {
	case KindReminder30:
		subject = fmt.Sprintf("Reminder: book due in 30 days - %s", loan.BookTitle)
		body = fmt.Sprintf(
			"Hello %s,\n\nThis is an automatic reminder about your book loan.\n\n"+
				"Book: %s\nLoan date: %s\nDue date: %s\n\n"+
				"Your book is due back in 30 days.\n\nThe library team",
			loan.UserName, loan.BookTitle, loanDate, dueDate)
	case KindReminder5:
		subject = fmt.Sprintf("Urgent reminder: book due in 5 days - %s", loan.BookTitle)
		body = fmt.Sprintf(
			"Hello %s,\n\nThis is an urgent reminder about your book loan.\n\n"+
				"Book: %s\nLoan date: %s\nDue date: %s\n\n"+
				"Your book is due back in 5 days. Please return it on time to avoid late fees.\n\nThe library team",
			loan.UserName, loan.BookTitle, loanDate, dueDate)
	case KindOverdue:
		daysLate := -DaysRemaining(loan.Loan.DueDate, d.nowFunc())
		if daysLate < 0 {
			daysLate = 0
		}
		subject = fmt.Sprintf("Overdue: book not returned - %s", loan.BookTitle)
		body = fmt.Sprintf(
			"Hello %s,\n\nYour book loan is overdue.\n\n"+
				"Book: %s\nLoan date: %s\nDue date: %s\nDays late: %d\n\n"+
				"Please return the book as soon as possible.\n\nThe library team",
			loan.UserName, loan.BookTitle, loanDate, dueDate, daysLate)
	}
	return subject, body
}
