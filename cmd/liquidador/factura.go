package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	liquidacionapp "github.com/finanzas/liquidaciones/internal/application/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
)

func facturaCommand() *cobra.Command {
	var tolerance string
	cmd := &cobra.Command{
		Use:   "factura",
		Short: "Reconcile and liquidate invoices",
	}
	cmd.PersistentFlags().StringVar(&tolerance, "tolerance", "0.01", "reconciliation tolerance")

	// open loads the invoice into a fresh session
	open := func(cmd *cobra.Command, dte string) (*liquidacionapp.Session, error) {
		tol, err := decimal.NewFromString(tolerance)
		if err != nil {
			return nil, fmt.Errorf("invalid --tolerance %q: %w", tolerance, err)
		}
		s := liquidacionapp.NewSession(liquidacionapp.SessionConfig{
			Facturas:  client,
			Detalles:  client,
			Tolerance: tol,
			Logger:    log,
		})
		if err := s.Open(cmd.Context()); err != nil {
			return nil, err
		}
		found, err := s.Buscar(cmd.Context(), dte)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errors.New(s.Snapshot().Mensaje)
		}
		return s, nil
	}

	show := &cobra.Command{
		Use:   "ver DTE",
		Short: "Show an invoice, its tardiness gate and its details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			printSnapshot(cmd.OutOrStdout(), s.Snapshot())
			return nil
		},
	}

	var (
		monto       string
		formaPago   string
		descripcion string
		numeroOrden string
		agencia     string
	)
	agregar := &cobra.Command{
		Use:   "agregar-detalle DTE",
		Short: "Append a liquidation detail and save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := decimal.NewFromString(monto)
			if err != nil {
				return fmt.Errorf("invalid --monto %q: %w", monto, err)
			}
			s, err := open(cmd, args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			if _, err := s.AgregarDetalle(liquidacion.Detalle{
				NumeroOrden: numeroOrden,
				Agencia:     agencia,
				Descripcion: descripcion,
				Monto:       m,
				FormaPago:   liquidacion.FormaPago(formaPago),
			}); err != nil {
				return err
			}
			if err := s.GuardarDetalles(cmd.Context()); err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), s.Snapshot())
			return nil
		},
	}
	agregar.Flags().StringVar(&monto, "monto", "", "detail amount")
	agregar.Flags().StringVar(&formaPago, "forma-pago", string(liquidacion.FormaPagoTransferencia), "payment method")
	agregar.Flags().StringVar(&descripcion, "descripcion", "", "description")
	agregar.Flags().StringVar(&numeroOrden, "orden", "", "order number")
	agregar.Flags().StringVar(&agencia, "agencia", "", "agency")
	_ = agregar.MarkFlagRequired("monto")

	eliminar := &cobra.Command{
		Use:   "eliminar-detalle DTE N",
		Short: "Delete the Nth liquidation detail",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid detail number %q", args[1])
			}
			s, err := open(cmd, args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.EliminarDetalle(cmd.Context(), n-1); err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), s.Snapshot())
			return nil
		},
	}

	var motivo string
	autorizar := &cobra.Command{
		Use:   "solicitar-autorizacion DTE",
		Short: "Request authorization to liquidate a late invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.SolicitarAutorizacion(cmd.Context(), motivo); err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), s.Snapshot())
			return nil
		},
	}
	autorizar.Flags().StringVar(&motivo, "motivo", "", "reason for the late liquidation")
	_ = autorizar.MarkFlagRequired("motivo")

	liquidar := &cobra.Command{
		Use:   "liquidar DTE",
		Short: "Liquidate a reconciled invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Liquidar(cmd.Context()); err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), s.Snapshot())
			return nil
		},
	}

	cmd.AddCommand(show, agregar, eliminar, autorizar, liquidar)
	return cmd
}

func printSnapshot(w io.Writer, snap liquidacionapp.Snapshot) {
	f := snap.Factura
	if f == nil {
		fmt.Fprintln(w, snap.Mensaje)
		return
	}
	fmt.Fprintf(w, "Factura %s  %s %s  estado %s\n", f.NumeroDTE, f.Moneda, f.MontoTotal.StringFixed(2), f.EstadoLiquidacion)
	if v := snap.Vencimiento; v != nil {
		fmt.Fprintf(w, "Días hábiles: %d de %d permitidos", v.DiasHabilesTranscurridos, v.DiasPermitidos)
		if v.RequiereAutorizacion {
			fmt.Fprintf(w, "  (autorización %s)", f.Autorizacion.Estado)
		}
		fmt.Fprintln(w)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tORDEN\tAGENCIA\tFORMA PAGO\tMONTO\tDESCRIPCIÓN")
	for i, d := range snap.Detalles {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, d.NumeroOrden, d.Agencia, d.FormaPago, d.Monto.StringFixed(2), d.Descripcion)
	}
	_ = tw.Flush()

	r := snap.Resumen
	fmt.Fprintf(w, "Total %s  diferencia %s  %s\n", r.Total.StringFixed(2), r.Diferencia.StringFixed(2), r.Completitud)
	if snap.CanLiquidate {
		fmt.Fprintln(w, "Lista para liquidar")
	}
	if snap.Mensaje != "" {
		fmt.Fprintln(w, snap.Mensaje)
	}
}
