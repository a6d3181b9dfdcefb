package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/internal/apiclient"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/designs"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/shopspring/decimal"
)

const (
	cmdCartShow     = "cart-show"
	cmdCartAdd      = "cart-add"
	cmdCartRemove   = "cart-remove"
	cmdCartUpdate   = "cart-update"
	cmdCartInc      = "cart-inc"
	cmdCartDec      = "cart-dec"
	cmdCartClear    = "cart-clear"
	cmdLogin        = "login"
	cmdRegister     = "register"
	cmdLogout       = "logout"
	cmdProfile      = "profile"
	cmdRefresh      = "refresh-tokens"
	cmdTemplates    = "templates"
	cmdDesignCreate = "design-create"
	cmdDesignList   = "design-list"
	cmdDesignGet    = "design-get"
	cmdDesignDelete = "design-delete"
)

var commands = []string{
	cmdCartShow, cmdCartAdd, cmdCartRemove, cmdCartUpdate, cmdCartInc, cmdCartDec, cmdCartClear,
	cmdLogin, cmdRegister, cmdLogout, cmdProfile, cmdRefresh,
	cmdTemplates, cmdDesignCreate, cmdDesignList, cmdDesignGet, cmdDesignDelete,
}

func commandList() string {
	return strings.Join(commands, "|")
}

// input holds the parsed flags. set records which flags were given so an
// explicit empty size or color stays distinct from an absent one.
type input struct {
	productID    string
	name         string
	price        string
	quantity     int
	maxQuantity  int
	size         string
	color        string
	image        string
	username     string
	password     string
	email        string
	firstName    string
	lastName     string
	designID     string
	templateID   string
	fineness     int
	metalColor   string
	gemstone     string
	gemstoneSize string
	set          map[string]bool
}

func (in input) optional(name, value string) types.OptionalString {
	if !in.set[name] {
		return types.None()
	}
	return types.Some(value)
}

func (in input) optionalPtr(name, value string) *string {
	return in.optional(name, value).Ptr()
}

func (in input) key() cart.Key {
	return cart.NewKey(in.productID, in.optional("size", in.size), in.optional("color", in.color))
}

type app struct {
	cart     *cart.Engine
	sessions *session.Store
	auth     auth.Service
	designs  designs.Service
	out      io.Writer
}

type cartSummary struct {
	Lines      []cart.Line     `json:"lines"`
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

func (a *app) run(ctx context.Context, cmd string, in input) error {
	switch cmd {
	case cmdCartShow:
		return a.printCart()
	case cmdCartAdd:
		product, err := in.product()
		if err != nil {
			return err
		}
		if err := a.cart.Add(ctx, product, in.quantity, in.optional("size", in.size), in.optional("color", in.color)); err != nil {
			return err
		}
		return a.printCart()
	case cmdCartRemove:
		return a.mutateCart(a.cart.Remove(ctx, in.key()))
	case cmdCartUpdate:
		return a.mutateCart(a.cart.UpdateQuantity(ctx, in.key(), in.quantity))
	case cmdCartInc:
		return a.mutateCart(a.cart.Increment(ctx, in.key()))
	case cmdCartDec:
		return a.mutateCart(a.cart.Decrement(ctx, in.key()))
	case cmdCartClear:
		return a.mutateCart(a.cart.Clear(ctx))

	case cmdLogin:
		user, err := a.auth.Login(ctx, apiclient.LoginRequest{Username: in.username, Password: in.password})
		if err != nil {
			return err
		}
		return a.print(user)
	case cmdRegister:
		user, err := a.auth.Register(ctx, apiclient.RegisterRequest{
			Email:     in.email,
			Username:  in.username,
			Password:  in.password,
			FirstName: in.optionalPtr("first-name", in.firstName),
			LastName:  in.optionalPtr("last-name", in.lastName),
		})
		if err != nil {
			return err
		}
		return a.print(user)
	case cmdLogout:
		a.auth.Logout(ctx)
		return nil
	case cmdProfile:
		user, err := a.sessions.Refresh(ctx)
		if err != nil {
			return err
		}
		return a.print(user)
	case cmdRefresh:
		if err := a.sessions.RefreshTokens(ctx); err != nil {
			return err
		}
		token, err := a.sessions.AccessToken()
		if err != nil {
			return err
		}
		expiry, ok := session.AccessTokenExpiry(token)
		if !ok {
			return a.print(map[string]any{"refreshed": true})
		}
		return a.print(map[string]any{"refreshed": true, "expiresAt": expiry.Format(time.RFC3339)})

	case cmdTemplates:
		templates, err := a.designs.Templates(ctx)
		if err != nil {
			return err
		}
		return a.print(templates)
	case cmdDesignCreate:
		saved, err := a.designs.Create(ctx, in.design(), in.name)
		if err != nil {
			return err
		}
		return a.print(saved)
	case cmdDesignList:
		list, err := a.designs.List(ctx)
		if err != nil {
			return err
		}
		return a.print(list)
	case cmdDesignGet:
		design, err := a.designs.Get(ctx, in.designID)
		if err != nil {
			return err
		}
		return a.print(design)
	case cmdDesignDelete:
		return a.designs.Delete(ctx, in.designID)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown command %q, expected one of %s", cmd, commandList()))
}

func (a *app) mutateCart(err error) error {
	if err != nil {
		return err
	}
	return a.printCart()
}

func (a *app) printCart() error {
	return a.print(cartSummary{
		Lines:      a.cart.Lines(),
		TotalItems: a.cart.TotalItems(),
		TotalPrice: a.cart.TotalPrice(),
	})
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (in input) product() (cart.Product, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(in.price))
	if err != nil {
		return cart.Product{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price must be a number")
	}
	product := cart.Product{
		ID:    in.productID,
		Name:  in.name,
		Price: price,
	}
	if in.image != "" {
		product.Images = []string{in.image}
	}
	if in.maxQuantity > 0 {
		limit := in.maxQuantity
		product.MaxQuantity = &limit
	}
	return product, nil
}

func (in input) design() apiclient.RingDesign {
	design := apiclient.RingDesign{}
	if in.templateID != "" {
		design.Template = &apiclient.Template{ID: in.templateID}
	}
	if in.set["fineness"] || in.set["metal-color"] {
		design.Metal = &apiclient.MetalConfig{
			Fineness: enums.MetalFineness(in.fineness),
			Color:    enums.MetalColor(in.metalColor),
		}
	}
	if in.set["gemstone"] {
		design.Gemstone = &apiclient.GemstoneConfig{
			Type: enums.GemstoneType(in.gemstone),
			Size: enums.GemstoneSize(in.gemstoneSize),
		}
	}
	return design
}
