// Package receipt renders the printable receipt of a completed purchase.
package receipt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	marotoconfig "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/woyofal/internal/config"
	"github.com/smallbiznis/woyofal/internal/format"
	purchasedomain "github.com/smallbiznis/woyofal/internal/purchase/domain"
	"go.uber.org/zap"
)

var ErrMissingPurchase = errors.New("receipt_missing_purchase")

const ContentType = "application/pdf"

type Renderer interface {
	Render(ctx context.Context, detail *purchasedomain.Detail) ([]byte, error)
}

type PDFRenderer struct {
	log     *zap.Logger
	issuer  string
	version string
	loc     *time.Location
}

func NewRenderer(cfg config.Config, log *zap.Logger) Renderer {
	issuer := cfg.AppName
	if issuer == "" {
		issuer = "woyofal"
	}
	return &PDFRenderer{
		log:     log.Named("receipt"),
		issuer:  issuer,
		version: cfg.AppVersion,
		loc:     cfg.Location(),
	}
}

func (r *PDFRenderer) Render(ctx context.Context, detail *purchasedomain.Detail) ([]byte, error) {
	if detail == nil || detail.Receipt.Reference == "" {
		return nil, ErrMissingPurchase
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rc := detail.Receipt
	tx := detail.Transaction

	cfg := marotoconfig.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} / {total}",
			Place:   props.RightBottom,
		}).
		WithAuthor(r.issuer, false).
		WithTitle("Reçu Woyofal "+rc.Reference, false).
		WithCreationDate(tx.DateAchat.In(r.loc)).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Reçu d'achat Woyofal", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, rc.Date, props.Text{
			Size:  9,
			Align: align.Right,
			Top:   3,
		}),
	)

	m.AddRow(26,
		col.New(6).Add(
			text.New("Client", props.Text{Style: fontstyle.Bold}),
			text.New(rc.Client, props.Text{Top: 5}),
			text.New("Compteur "+rc.Compteur, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Référence", props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New(rc.Reference, props.Text{Top: 5, Align: align.Right}),
		),
	)

	m.AddRow(18,
		text.NewCol(12, "Code de recharge", props.Text{Style: fontstyle.Bold, Size: 10}),
	)
	m.AddRow(14,
		text.NewCol(12, groupCode(rc.Code), props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Center,
		}),
	)
	m.AddRow(4, line.NewCol(12))

	m.AddRow(10,
		text.NewCol(5, "Tranche", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Prix", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "kWh", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(3, "Montant", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, entry := range tx.TierBreakdown {
		m.AddRow(8,
			text.NewCol(5, entry.TierName, props.Text{Size: 9}),
			text.NewCol(2, format.PricePerKWh(entry.UnitPrice), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, format.Number(entry.KWh, 3), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(3, format.Number(entry.Amount, 2)+" FCFA", props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(4, line.NewCol(12))

	m.AddRow(8,
		col.New(7),
		text.NewCol(2, "Montant", props.Text{Size: 9}),
		text.NewCol(3, format.FCFA(tx.Montant), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(7),
		text.NewCol(2, "Énergie", props.Text{Size: 9}),
		text.NewCol(3, rc.NbreKwt, props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(7),
		text.NewCol(2, "Prix moyen", props.Text{Size: 9}),
		text.NewCol(3, rc.Prix, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(7),
		text.NewCol(2, "Tranche", props.Text{Size: 9}),
		text.NewCol(3, rc.Tranche, props.Text{Size: 9, Align: align.Right}),
	)

	m.AddRow(16,
		text.NewCol(12, fmt.Sprintf("%s %s", r.issuer, r.version), props.Text{
			Size:  7,
			Align: align.Center,
			Top:   8,
		}),
	)

	doc, err := m.Generate()
	if err != nil {
		r.log.Warn("receipt generation failed",
			zap.String("reference", rc.Reference),
			zap.Error(err),
		)
		return nil, fmt.Errorf("generate receipt %s: %w", rc.Reference, err)
	}
	return doc.GetBytes(), nil
}

// groupCode splits a recharge code in blocks of four digits as printed on
// vending slips.
func groupCode(code string) string {
	out := make([]byte, 0, len(code)+len(code)/4)
	for i := 0; i < len(code); i++ {
		if i > 0 && i%4 == 0 {
			out = append(out, ' ')
		}
		out = append(out, code[i])
	}
	return string(out)
}
