package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ariefcatur/go-kiosk-pos/internal/assembler"
	"github.com/ariefcatur/go-kiosk-pos/internal/auth"
	"github.com/ariefcatur/go-kiosk-pos/internal/domain"
	"github.com/shopspring/decimal"
)

type usageError struct{ msg string }

func (u usageError) Error() string { return u.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

type cli struct {
	asm      *assembler.Assembler
	gate     *auth.Gate
	password string
	out      io.Writer
}

func (c *cli) dispatch(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usagef("%s: missing subcommand", args[0])
	}
	group, cmd, rest := args[0], args[1], args[2:]
	switch group + " " + cmd {
	case "category add":
		return c.categoryAdd(ctx, rest)
	case "category list":
		return c.categoryList(ctx)
	case "category rename":
		return c.categoryRename(ctx, rest)
	case "category delete":
		return c.categoryDelete(ctx, rest)
	case "product add":
		return c.productAdd(ctx, rest)
	case "product list":
		return c.productList(ctx, rest)
	case "product show":
		return c.productShow(ctx, rest)
	case "product stock":
		return c.productStock(ctx, rest)
	case "product update":
		return c.productUpdate(ctx, rest)
	case "product delete":
		return c.productDelete(ctx, rest)
	case "sale commit":
		return c.saleCommit(ctx, rest)
	case "sale show":
		return c.saleShow(ctx, rest)
	case "sale list":
		return c.saleList(ctx, rest)
	case "sale reverse":
		return c.saleReverse(ctx, rest)
	}
	return usagef("unknown command %q", group+" "+cmd)
}

// grant checks the -password credential. Only gated commands call it.
func (c *cli) grant() (auth.Grant, error) {
	return c.gate.Authorize(c.password)
}

// ---- categories ----

func (c *cli) categoryAdd(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usagef("category add NAME")
	}
	cat, err := c.asm.AddCategory(ctx, domain.Category{Name: args[0]})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "category %d %q added\n", cat.ID, cat.Name)
	return nil
}

func (c *cli) categoryList(ctx context.Context) error {
	cats, err := c.asm.GetAllCategories(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, cat := range cats {
		fmt.Fprintf(tw, "%d\t%s\n", cat.ID, cat.Name)
	}
	return tw.Flush()
}

func (c *cli) categoryRename(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usagef("category rename ID NAME")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	g, err := c.grant()
	if err != nil {
		return err
	}
	if err := c.asm.RenameCategory(ctx, g, id, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "category %d renamed to %q\n", id, args[1])
	return nil
}

func (c *cli) categoryDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usagef("category delete ID")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	g, err := c.grant()
	if err != nil {
		return err
	}
	if err := c.asm.DeleteCategory(ctx, g, id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "category %d deleted\n", id)
	return nil
}

// ---- products ----

func (c *cli) productAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("product add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "product name")
	price := fs.String("price", "", "unit price")
	stock := fs.Int("stock", 0, "initial stock")
	category := fs.Int64("category", 0, "category id")
	if err := fs.Parse(args); err != nil {
		return usagef("product add: %v", err)
	}
	if *name == "" || *price == "" || *category == 0 {
		return usagef("product add -name N -price P -stock S -category ID")
	}
	p, err := parsePrice(*price)
	if err != nil {
		return err
	}
	prod, err := c.asm.AddProduct(ctx, domain.Product{
		Name:     *name,
		Price:    p,
		Stock:    *stock,
		Category: domain.Category{ID: *category},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "product %d %q added to %q\n", prod.ID, prod.Name, prod.Category.Name)
	return nil
}

func (c *cli) productList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("product list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	category := fs.String("category", "", "only products of this category name")
	if err := fs.Parse(args); err != nil {
		return usagef("product list: %v", err)
	}
	var (
		products []domain.Product
		err      error
	)
	if *category != "" {
		products, err = c.asm.ProductsByCategoryName(ctx, *category)
	} else {
		products, err = c.asm.GetAllProducts(ctx)
	}
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK\tCATEGORY")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", p.ID, p.Name, domain.FormatMoney(p.Price), p.Stock, p.Category.Name)
	}
	return tw.Flush()
}

func (c *cli) productShow(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usagef("product show ID")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	p, err := c.asm.GetProductByID(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s [Stock: %d] - %s (%s)\n", p.Name, p.Stock, domain.FormatMoney(p.Price), p.Category.Name)
	return nil
}

func (c *cli) productStock(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usagef("product stock ID QTY")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return usagef("quantity %q is not a number", args[1])
	}
	g, err := c.grant()
	if err != nil {
		return err
	}
	if err := c.asm.UpdateProductStock(ctx, g, id, qty); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "product %d stock set to %d\n", id, qty)
	return nil
}

func (c *cli) productUpdate(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return usagef("product update ID [-name N] [-price P]")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("product update", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "new name")
	priceStr := fs.String("price", "", "new unit price")
	if err := fs.Parse(args[1:]); err != nil {
		return usagef("product update: %v", err)
	}

	var (
		namePtr  *string
		pricePtr *decimal.Decimal
	)
	if *name != "" {
		namePtr = name
	}
	if *priceStr != "" {
		p, err := parsePrice(*priceStr)
		if err != nil {
			return err
		}
		pricePtr = &p
	}
	if namePtr == nil && pricePtr == nil {
		return usagef("product update: nothing to change")
	}
	g, err := c.grant()
	if err != nil {
		return err
	}
	if err := c.asm.UpdateProductFields(ctx, g, id, namePtr, pricePtr); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "product %d updated\n", id)
	return nil
}

func (c *cli) productDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usagef("product delete ID")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	g, err := c.grant()
	if err != nil {
		return err
	}
	if err := c.asm.DeleteProduct(ctx, g, id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "product %d deleted\n", id)
	return nil
}

// ---- sales ----

func (c *cli) saleCommit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sale commit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	key := fs.String("key", "", "idempotency key")
	if err := fs.Parse(args); err != nil {
		return usagef("sale commit: %v", err)
	}
	if fs.NArg() == 0 {
		return usagef("sale commit [-key K] PRODUCT:QTY...")
	}
	var cart domain.Cart
	for _, a := range fs.Args() {
		l, err := parseLine(a)
		if err != nil {
			return err
		}
		p, err := c.asm.GetProductByID(ctx, l.ProductID)
		if err != nil {
			return err
		}
		if err := cart.Add(p, l.Quantity); err != nil {
			return err
		}
	}

	out, err := c.asm.RegisterSaleOnce(ctx, *key, &cart)
	if err != nil {
		return err
	}
	if !out.Committed {
		for _, s := range out.Shortages {
			fmt.Fprintf(c.out, "product %d: requested %d, in stock %d\n", s.ProductID, s.Required, s.Available)
		}
		return out.Err()
	}
	if out.Replayed {
		fmt.Fprintf(c.out, "sale %d already recorded for key %q\n", out.SaleID, *key)
		return nil
	}
	fmt.Fprintf(c.out, "sale %d committed, total %s\n", out.SaleID, domain.FormatMoney(out.Total))
	return nil
}

func (c *cli) saleShow(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usagef("sale show ID")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	s, err := c.asm.GetSaleByID(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "sale %d  %s\n", s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tQTY\tUNIT\tSUBTOTAL")
	for _, it := range s.Items {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", it.Product.Name, it.Quantity, domain.FormatMoney(it.UnitPrice), domain.FormatMoney(it.Subtotal()))
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t%s\n", domain.FormatMoney(s.Total))
	return tw.Flush()
}

func (c *cli) saleList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sale list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	date := fs.String("date", "", "only sales of this day (YYYY-MM-DD, local time)")
	if err := fs.Parse(args); err != nil {
		return usagef("sale list: %v", err)
	}
	var (
		list []domain.Sale
		err  error
	)
	if *date != "" {
		day, perr := time.ParseInLocation(time.DateOnly, *date, time.Local)
		if perr != nil {
			return usagef("date %q: want YYYY-MM-DD", *date)
		}
		list, err = c.asm.SalesOn(ctx, day)
	} else {
		list, err = c.asm.GetAllSales(ctx)
	}
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tITEMS\tTOTAL")
	for _, s := range list {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04"), len(s.Items), domain.FormatMoney(s.Total))
	}
	return tw.Flush()
}

func (c *cli) saleReverse(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usagef("sale reverse ID")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	g, err := c.grant()
	if err != nil {
		return err
	}
	rev, err := c.asm.DeleteSale(ctx, g, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "sale %d reversed, %d line(s) restocked\n", rev.SaleID, len(rev.Restocked))
	return nil
}

// ---- parsing ----

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef("id %q must be a positive integer", s)
	}
	return id, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimPrefix(s, "R$"))
	if err != nil {
		return decimal.Zero, usagef("price %q is not a number", s)
	}
	return d, nil
}

// parseLine reads PRODUCT:QTY.
func parseLine(s string) (domain.Line, error) {
	pid, qty, ok := strings.Cut(s, ":")
	if !ok {
		return domain.Line{}, usagef("line %q: want PRODUCT:QTY", s)
	}
	id, err := parseID(pid)
	if err != nil {
		return domain.Line{}, err
	}
	n, err := strconv.Atoi(qty)
	if err != nil || n <= 0 {
		return domain.Line{}, usagef("line %q: quantity must be a positive integer", s)
	}
	return domain.Line{ProductID: id, Quantity: n}, nil
}
