package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	transferenciaapp "github.com/finanzas/liquidaciones/internal/application/transferencia"
	"github.com/finanzas/liquidaciones/internal/domain/transferencia"
)

// solicitudFlags holds the editable fields of a transfer request
type solicitudFlags struct {
	pares         []string
	cuenta        string
	area          string
	monto         string
	concepto      string
	observaciones string
}

func (f *solicitudFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.pares, "par", nil, "invoice and detail ids as FACTURA:DETALLE (repeatable)")
	cmd.Flags().StringVar(&f.cuenta, "cuenta", "", "bank account id")
	cmd.Flags().StringVar(&f.area, "area", "", "approval area id")
	cmd.Flags().StringVar(&f.monto, "monto", "", "total amount requested")
	cmd.Flags().StringVar(&f.concepto, "concepto", "", "concept")
	cmd.Flags().StringVar(&f.observaciones, "observaciones", "", "notes")
}

// apply overwrites req with every flag the user set
func (f *solicitudFlags) apply(cmd *cobra.Command, req *transferenciaapp.SolicitudRequest) error {
	changed := cmd.Flags().Changed
	if changed("par") {
		pares, err := parsePares(f.pares)
		if err != nil {
			return err
		}
		req.Pares = pares
	}
	if changed("cuenta") {
		id, err := uuid.Parse(f.cuenta)
		if err != nil {
			return fmt.Errorf("invalid --cuenta %q: %w", f.cuenta, err)
		}
		req.CuentaBancariaID = id
	}
	if changed("area") {
		id, err := uuid.Parse(f.area)
		if err != nil {
			return fmt.Errorf("invalid --area %q: %w", f.area, err)
		}
		req.AreaAprobacionID = id
	}
	if changed("monto") {
		m, err := decimal.NewFromString(f.monto)
		if err != nil {
			return fmt.Errorf("invalid --monto %q: %w", f.monto, err)
		}
		req.Monto = m
	}
	if changed("concepto") {
		req.Concepto = f.concepto
	}
	if changed("observaciones") {
		req.Observaciones = f.observaciones
	}
	return nil
}

func parsePares(raw []string) ([]transferencia.Par, error) {
	pares := make([]transferencia.Par, 0, len(raw))
	for _, r := range raw {
		facturaRaw, detalleRaw, ok := strings.Cut(r, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --par %q: expected FACTURA:DETALLE", r)
		}
		facturaID, err := uuid.Parse(facturaRaw)
		if err != nil {
			return nil, fmt.Errorf("invalid --par %q: %w", r, err)
		}
		detalleID, err := uuid.Parse(detalleRaw)
		if err != nil {
			return nil, fmt.Errorf("invalid --par %q: %w", r, err)
		}
		pares = append(pares, transferencia.Par{FacturaID: facturaID, DetalleID: detalleID})
	}
	return pares, nil
}

func crearCommand(listReq func() transferenciaapp.ListRequest) *cobra.Command {
	var flags solicitudFlags
	cmd := &cobra.Command{
		Use:   "crear",
		Short: "Create a transfer request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			editor := transferenciaapp.NewEditor(client, listReq())
			req := editor.BeginCreate()
			if err := flags.apply(cmd, &req); err != nil {
				editor.Cancel()
				return err
			}
			return submit(cmd, editor, req)
		},
	}
	flags.register(cmd)
	_ = cmd.MarkFlagRequired("par")
	_ = cmd.MarkFlagRequired("cuenta")
	_ = cmd.MarkFlagRequired("area")
	_ = cmd.MarkFlagRequired("monto")
	return cmd
}

func editarCommand(listReq func() transferenciaapp.ListRequest) *cobra.Command {
	var flags solicitudFlags
	cmd := &cobra.Command{
		Use:   "editar ID",
		Short: "Correct and resubmit a rejected transfer request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			editor := transferenciaapp.NewEditor(client, listReq())
			req, err := editor.BeginEdit(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, &req); err != nil {
				editor.Cancel()
				return err
			}
			return submit(cmd, editor, req)
		},
	}
	flags.register(cmd)
	return cmd
}

func submit(cmd *cobra.Command, editor *transferenciaapp.Editor, req transferenciaapp.SolicitudRequest) error {
	res, err := editor.Submit(cmd.Context(), req)
	if err != nil {
		editor.Cancel()
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "solicitud %s (%s)\n", res.Solicitud.Numero, res.Solicitud.Estado)
	if res.RefreshErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not refresh the listing: %v\n", res.RefreshErr)
		return nil
	}
	printSolicitudes(cmd.OutOrStdout(), res.Lista)
	return nil
}
